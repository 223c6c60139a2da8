package pipeline

import (
	"context"
	"fmt"

	"datacleaner/internal/dataprocessing"
	"datacleaner/pkg/contracts/domain"
)

// stepMessager lets a step describe what it did.
type stepMessager interface {
	Message() string
}

type dropColumnsStep struct {
	baseStep
	columns []string
	msg     string
}

func (s *dropColumnsStep) Execute(_ context.Context, state *State) error {
	if err := state.Dataset.DropColumns(s.columns...); err != nil {
		return err
	}
	s.msg = fmt.Sprintf("dropped %d column(s)", len(s.columns))
	return nil
}

func (s *dropColumnsStep) Message() string { return s.msg }

type missingStep struct {
	baseStep
	strategy domain.MissingStrategy
	msg      string
}

func (s *missingStep) Execute(_ context.Context, state *State) error {
	report, err := dataprocessing.ApplyMissingStrategy(state.Dataset, s.strategy)
	if err != nil {
		return err
	}
	s.msg = fmt.Sprintf("%s: %d row(s) -> %d row(s)", report.Strategy, report.RowsBefore, report.RowsAfter)
	return nil
}

func (s *missingStep) Message() string { return s.msg }

type dedupeStep struct {
	baseStep
	msg string
}

func (s *dedupeStep) Execute(_ context.Context, state *State) error {
	removed := dataprocessing.DropDuplicates(state.Dataset)
	s.msg = fmt.Sprintf("removed %d duplicate row(s)", removed)
	return nil
}

func (s *dedupeStep) Message() string { return s.msg }

type convertStep struct {
	baseStep
	coercer *dataprocessing.Coercer
	column  string
	target  domain.Kind
	msg     string
}

func (s *convertStep) Execute(_ context.Context, state *State) error {
	outcome, err := s.coercer.Convert(state.Dataset, s.column, s.target)
	state.Outcomes = append(state.Outcomes, outcome)
	s.msg = outcome.Message
	return err
}

func (s *convertStep) Message() string { return s.msg }
