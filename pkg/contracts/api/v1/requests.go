// Package api contains the HTTP request and response contracts of the
// datacleaner service. Version v1 is the current stable API.
package api

// CreateSessionForm documents the multipart fields of an upload. The file
// itself travels in the "file" part.
type CreateSessionForm struct {
	Sheet     string `json:"sheet,omitempty"`
	Delimiter string `json:"delimiter,omitempty" validate:"omitempty,len=1"`
}

// PreviewQuery selects the first or last rows of a dataset.
type PreviewQuery struct {
	Mode string `json:"mode" query:"mode" validate:"omitempty,oneof=head tail"`
	N    int    `json:"n" query:"n" validate:"omitempty,min=1,max=1000"`
}

// DropColumnsRequest removes columns. Unknown names reject the whole
// request.
type DropColumnsRequest struct {
	Columns []string `json:"columns" validate:"required,min=1,dive,column"`
}

// MissingStrategyRequest applies a missing value strategy.
type MissingStrategyRequest struct {
	Strategy string `json:"strategy" validate:"required,oneof=none drop mean mode median"`
}

// ConvertRequest coerces one column to a target kind. Target accepts the
// kind names and their common aliases (int, str, datetime, ...).
type ConvertRequest struct {
	Column string `json:"column" validate:"required,column"`
	Target string `json:"target" validate:"required,kind"`
}

// GroupByRequest aggregates a numeric column per distinct key.
type GroupByRequest struct {
	By    string `json:"by" validate:"required,column"`
	Value string `json:"value" validate:"required,column"`
	Agg   string `json:"agg" validate:"required,oneof=sum mean max min count"`
}
