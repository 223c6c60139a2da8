package domain

// OutcomeStatus classifies the result of a conversion request.
type OutcomeStatus string

const (
	// StatusAlreadyTargetKind means the column already satisfied the target
	// and was left untouched.
	StatusAlreadyTargetKind OutcomeStatus = "already_target_kind"
	StatusConverted         OutcomeStatus = "converted"
	// StatusWarning means the column was converted but some values became
	// missing along the way.
	StatusWarning OutcomeStatus = "warning"
	StatusFailed  OutcomeStatus = "failed"
)

// FailureReason names why a conversion was rejected or only partially
// succeeded.
type FailureReason string

const (
	ReasonNone                  FailureReason = ""
	ReasonNonIntegerFloatValues FailureReason = "non_integer_float_values"
	ReasonNonNumericValue       FailureReason = "non_numeric_value"
	ReasonPartialDateConversion FailureReason = "partial_date_conversion"
	ReasonDateExtractionError   FailureReason = "date_extraction_error"
)

// ConversionRequest asks for one column to be coerced to a target kind.
type ConversionRequest struct {
	Column string `json:"column"`
	Target Kind   `json:"target"`
}

// ConversionOutcome reports what happened to a column.
type ConversionOutcome struct {
	Column   string        `json:"column"`
	From     Kind          `json:"from"`
	To       Kind          `json:"to"`
	Target   Kind          `json:"target"`
	Status   OutcomeStatus `json:"status"`
	Reason   FailureReason `json:"reason,omitempty"`
	Message  string        `json:"message"`
	Affected int           `json:"affected,omitempty"`
	Sample   string        `json:"sample,omitempty"`
}

// Changed reports whether the column was mutated.
func (o ConversionOutcome) Changed() bool {
	return o.Status == StatusConverted || o.Status == StatusWarning
}

// Level maps the outcome onto a user facing message level.
func (o ConversionOutcome) Level() string {
	switch o.Status {
	case StatusConverted:
		return "success"
	case StatusWarning:
		return "warning"
	case StatusFailed:
		return "error"
	default:
		return "info"
	}
}
