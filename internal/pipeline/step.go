package pipeline

import (
	"context"
	"time"

	"datacleaner/internal/dataprocessing"
	"datacleaner/pkg/contracts/domain"
)

// Step is one transformation of the pipeline dataset.
type Step interface {
	// ID is unique within a pipeline, e.g. "2-missing".
	ID() string
	// Type is the registry key the step was built from.
	Type() string
	Execute(ctx context.Context, state *State) error
}

// StepStatus represents the current status of a Step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the outcome of one step.
type StepState struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Status   StepStatus    `json:"status"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Rows     int           `json:"rows"`
	Columns  int           `json:"columns"`
}

// State is shared by the steps of one run.
type State struct {
	Dataset  *dataprocessing.Dataset
	Steps    []*StepState
	Outcomes []domain.ConversionOutcome
}

type baseStep struct {
	id       string
	stepType string
}

func (b baseStep) ID() string   { return b.id }
func (b baseStep) Type() string { return b.stepType }
