package dataprocessing

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"datacleaner/pkg/contracts/domain"
)

// Year and month bounds. A column is only treated as already holding years
// or months when every value lies inside these ranges.
const (
	MinYear  = 1000
	MaxYear  = 3000
	MinMonth = 1
	MaxMonth = 12
)

var (
	ErrNonIntegerFloatValues = errors.New("column contains non-integer float values")
	ErrNonNumericValue       = errors.New("column contains non-numeric values")
	ErrDateExtraction        = errors.New("date component extraction failed")
	ErrUnsupportedTarget     = errors.New("unsupported conversion target")
)

// CoercionError describes a rejected conversion. The column is untouched
// whenever a CoercionError is returned.
type CoercionError struct {
	Column string
	From   domain.Kind
	To     domain.Kind
	Reason domain.FailureReason
	Count  int
	Sample string

	// Missing and OutOfRange break Count down for NonIntegerFloatValues.
	// The rest of Count have a fractional part.
	Missing    int
	OutOfRange int
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("cannot convert column %q from %s to %s", e.Column, e.From, e.To)
	switch e.Reason {
	case domain.ReasonNonIntegerFloatValues:
		msg += ": " + e.integerProblems()
	case domain.ReasonNonNumericValue:
		msg += fmt.Sprintf(": %d value(s) are not numeric", e.Count)
	case domain.ReasonDateExtractionError:
		msg += fmt.Sprintf(": %d value(s) did not yield a valid %s", e.Count, e.To)
	}
	if e.Sample != "" {
		msg += fmt.Sprintf(" (first: %q)", e.Sample)
	}
	return msg
}

func (e *CoercionError) integerProblems() string {
	var parts []string
	if n := e.Count - e.Missing - e.OutOfRange; n > 0 {
		parts = append(parts, fmt.Sprintf("%d value(s) have a fractional part", n))
	}
	if e.OutOfRange > 0 {
		parts = append(parts, fmt.Sprintf("%d value(s) are outside the 64-bit integer range", e.OutOfRange))
	}
	if e.Missing > 0 {
		parts = append(parts, fmt.Sprintf("%d value(s) are missing", e.Missing))
	}
	return strings.Join(parts, ", ")
}

func (e *CoercionError) Unwrap() error {
	switch e.Reason {
	case domain.ReasonNonIntegerFloatValues:
		return ErrNonIntegerFloatValues
	case domain.ReasonNonNumericValue:
		return ErrNonNumericValue
	case domain.ReasonDateExtractionError:
		return ErrDateExtraction
	}
	return nil
}

// Coercer converts dataset columns between kinds.
type Coercer struct {
	logger *slog.Logger
}

// NewCoercer creates a coercer.
func NewCoercer(logger *slog.Logger) *Coercer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coercer{logger: logger.With(slog.String("component", "coercer"))}
}

// Convert coerces the named column of ds to target. The dataset is only
// mutated when the returned outcome reports a change. A non-nil error is
// either ErrColumnNotFound, ErrUnsupportedTarget or a *CoercionError.
func (c *Coercer) Convert(ds *Dataset, column string, target domain.Kind) (domain.ConversionOutcome, error) {
	col, err := ds.Column(column)
	if err != nil {
		return domain.ConversionOutcome{Column: column, Target: target, Status: domain.StatusFailed, Message: err.Error()}, err
	}

	converted, outcome, err := CoerceColumn(col, target)
	if err != nil {
		c.logger.Warn("conversion rejected",
			slog.String("column", column),
			slog.String("from", string(col.Kind)),
			slog.String("target", string(target)),
			slog.String("error", err.Error()))
		return outcome, err
	}

	if outcome.Changed() {
		if err := ds.ReplaceColumn(converted); err != nil {
			return outcome, err
		}
	}

	c.logger.Info("conversion completed",
		slog.String("column", column),
		slog.String("from", string(outcome.From)),
		slog.String("to", string(outcome.To)),
		slog.String("status", string(outcome.Status)),
		slog.Int("affected", outcome.Affected))
	return outcome, nil
}

// CoerceColumn computes the result of converting col to target without
// touching col. The returned column is nil unless the outcome reports a
// change.
func CoerceColumn(col *Column, target domain.Kind) (*Column, domain.ConversionOutcome, error) {
	outcome := domain.ConversionOutcome{
		Column: col.Name,
		From:   col.Kind,
		To:     col.Kind,
		Target: target,
	}

	var (
		values []any
		kind   domain.Kind
		err    error
	)

	switch target {
	case domain.KindInteger:
		if col.Kind == domain.KindInteger {
			return nil, alreadyTarget(outcome, "an integer"), nil
		}
		if col.Kind == domain.KindFloat {
			values, err = floatsToIntegers(col)
			kind = domain.KindInteger
		} else {
			values, kind, err = parseNumeric(col, target, true)
		}

	case domain.KindFloat:
		if col.Kind == domain.KindFloat {
			return nil, alreadyTarget(outcome, "a float"), nil
		}
		values, _, err = parseNumeric(col, target, false)
		kind = domain.KindFloat

	case domain.KindString:
		if col.Kind.IsStringLike() {
			return nil, alreadyTarget(outcome, "a string"), nil
		}
		values = stringify(col)
		kind = domain.KindString

	case domain.KindDate:
		if col.Kind == domain.KindDate {
			return nil, alreadyTarget(outcome, "a date"), nil
		}
		var lost int
		values, lost = parseDates(col)
		kind = domain.KindDate
		if lost > 0 {
			return finish(col, values, kind, outcome, domain.StatusWarning, domain.ReasonPartialDateConversion, lost,
				fmt.Sprintf("Some values in %s could not be converted to date (%d set to missing).", col.Name, lost))
		}

	case domain.KindYear, domain.KindMonth:
		lo, hi := int64(MinYear), int64(MaxYear)
		if target == domain.KindMonth {
			lo, hi = MinMonth, MaxMonth
		}
		if col.Kind == domain.KindInteger && allInRange(col, lo, hi) {
			return nil, alreadyTarget(outcome, "a "+string(target)), nil
		}
		var lost int
		values, lost, err = extractDatePart(col, target, lo, hi)
		kind = domain.KindInteger
		if err == nil && lost > 0 {
			return finish(col, values, kind, outcome, domain.StatusWarning, domain.ReasonPartialDateConversion, lost,
				fmt.Sprintf("Some values in %s could not be converted to %s (%d set to missing).", col.Name, target, lost))
		}

	default:
		outcome.Status = domain.StatusFailed
		outcome.Message = fmt.Sprintf("%s is not a supported conversion target", target)
		return nil, outcome, fmt.Errorf("%w: %s", ErrUnsupportedTarget, target)
	}

	if err != nil {
		var ce *CoercionError
		if errors.As(err, &ce) {
			outcome.Reason = ce.Reason
			outcome.Affected = ce.Count
			outcome.Sample = ce.Sample
		}
		outcome.Status = domain.StatusFailed
		outcome.Message = err.Error()
		return nil, outcome, err
	}

	return finish(col, values, kind, outcome, domain.StatusConverted, domain.ReasonNone, 0,
		fmt.Sprintf("Column %s successfully converted to %s.", col.Name, target))
}

func alreadyTarget(outcome domain.ConversionOutcome, what string) domain.ConversionOutcome {
	outcome.Status = domain.StatusAlreadyTargetKind
	outcome.Message = fmt.Sprintf("Column %s is already %s.", outcome.Column, what)
	return outcome
}

func finish(col *Column, values []any, kind domain.Kind, outcome domain.ConversionOutcome,
	status domain.OutcomeStatus, reason domain.FailureReason, affected int, msg string) (*Column, domain.ConversionOutcome, error) {
	outcome.To = kind
	outcome.Status = status
	outcome.Reason = reason
	outcome.Affected = affected
	outcome.Message = msg
	return NewColumn(col.Name, kind, values), outcome, nil
}

// floatsToIntegers requires every value to be a whole number that fits in
// int64 before anything is converted. A missing value has no integer form,
// so it rejects the conversion too.
func floatsToIntegers(col *Column) ([]any, error) {
	ce := &CoercionError{Column: col.Name, From: col.Kind, To: domain.KindInteger,
		Reason: domain.ReasonNonIntegerFloatValues}
	for _, v := range col.Values {
		f, ok := v.(float64)
		switch {
		case !ok || math.IsNaN(f):
			ce.Missing++
		case !isIntegral(f):
			if ce.Sample == "" {
				ce.Sample = FormatValue(f)
			}
		case !fitsInt64(f):
			ce.OutOfRange++
			if ce.Sample == "" {
				ce.Sample = FormatValue(f)
			}
		default:
			continue
		}
		ce.Count++
	}
	if ce.Count > 0 {
		return nil, ce
	}

	out := make([]any, len(col.Values))
	for i, v := range col.Values {
		out[i] = int64(v.(float64))
	}
	return out, nil
}

// parseNumeric parses every value as a number. With preferInt the result is
// an integer column when every parsed value is integral and fits in int64,
// and a float column otherwise.
func parseNumeric(col *Column, target domain.Kind, preferInt bool) ([]any, domain.Kind, error) {
	parsed := make([]any, len(col.Values))
	bad, sample := 0, ""
	allIntegral := true
	for i, v := range col.Values {
		num, missing, ok := parseNumber(v)
		if !ok || (col.Kind == domain.KindDate && v != nil) {
			if bad == 0 {
				sample = FormatValue(v)
			}
			bad++
			continue
		}
		if missing {
			continue
		}
		if f, isFloat := num.(float64); isFloat && (!isIntegral(f) || !fitsInt64(f)) {
			allIntegral = false
		}
		parsed[i] = num
	}
	if bad > 0 {
		return nil, "", &CoercionError{Column: col.Name, From: col.Kind, To: target,
			Reason: domain.ReasonNonNumericValue, Count: bad, Sample: sample}
	}

	if preferInt && allIntegral {
		for i, v := range parsed {
			if f, ok := v.(float64); ok {
				parsed[i] = int64(f)
			}
		}
		return parsed, domain.KindInteger, nil
	}

	for i, v := range parsed {
		if n, ok := v.(int64); ok {
			parsed[i] = float64(n)
		}
	}
	return parsed, domain.KindFloat, nil
}

func stringify(col *Column) []any {
	out := make([]any, len(col.Values))
	for i, v := range col.Values {
		if v == nil {
			continue
		}
		out[i] = FormatValue(v)
	}
	return out
}

// parseDates converts every value to a date, replacing unparseable values
// with nil. lost counts values that were present before and are missing now.
func parseDates(col *Column) ([]any, int) {
	out := make([]any, len(col.Values))
	lost := 0
	for i, v := range col.Values {
		if v == nil {
			continue
		}
		t, ok := parseDate(v)
		if !ok {
			lost++
			continue
		}
		out[i] = t
	}
	return out, lost
}

func allInRange(col *Column, lo, hi int64) bool {
	for _, v := range col.Values {
		if v == nil {
			continue
		}
		n, ok := v.(int64)
		if !ok || n < lo || n > hi {
			return false
		}
	}
	return true
}

// extractDatePart parses dates and keeps their year or month. It fails when
// no present value parses or when an extracted component falls outside
// [lo, hi].
func extractDatePart(col *Column, target domain.Kind, lo, hi int64) ([]any, int, error) {
	out := make([]any, len(col.Values))
	present, parsed, lost := 0, 0, 0
	outOfRange, sample := 0, ""
	for i, v := range col.Values {
		if v == nil {
			continue
		}
		present++
		t, ok := parseDate(v)
		if !ok {
			lost++
			if sample == "" {
				sample = FormatValue(v)
			}
			continue
		}
		parsed++
		part := datePart(t, target)
		if part < lo || part > hi {
			if outOfRange == 0 {
				sample = FormatValue(v)
			}
			outOfRange++
			continue
		}
		out[i] = part
	}

	if outOfRange > 0 {
		return nil, 0, &CoercionError{Column: col.Name, From: col.Kind, To: target,
			Reason: domain.ReasonDateExtractionError, Count: outOfRange, Sample: sample}
	}
	if present > 0 && parsed == 0 {
		return nil, 0, &CoercionError{Column: col.Name, From: col.Kind, To: target,
			Reason: domain.ReasonDateExtractionError, Count: present, Sample: sample}
	}
	return out, lost, nil
}

func datePart(t time.Time, target domain.Kind) int64 {
	if target == domain.KindMonth {
		return int64(t.Month())
	}
	return int64(t.Year())
}
