package domain

import "time"

// ColumnInfo describes one column of a dataset.
type ColumnInfo struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
}

// DatasetInfo is the structural summary of a dataset.
type DatasetInfo struct {
	Rows        int          `json:"rows"`
	Columns     []ColumnInfo `json:"columns"`
	MemoryBytes int64        `json:"memory_bytes"`
}

// Preview holds the first or last rows of a dataset.
type Preview struct {
	Mode    string   `json:"mode"`
	Columns []string `json:"columns"`
	Kinds   []Kind   `json:"kinds"`
	Rows    [][]any  `json:"rows"`
	Total   int      `json:"total_rows"`
}

// MissingMatrix marks missing cells row by row.
type MissingMatrix struct {
	Columns   []string `json:"columns"`
	Rows      [][]bool `json:"rows"`
	Truncated bool     `json:"truncated"`
}

// MissingStrategy selects how missing values are treated.
type MissingStrategy string

const (
	MissingNone   MissingStrategy = "none"
	MissingDrop   MissingStrategy = "drop"
	MissingMean   MissingStrategy = "mean"
	MissingMode   MissingStrategy = "mode"
	MissingMedian MissingStrategy = "median"
)

// FillReport describes the effect of a missing value strategy.
type FillReport struct {
	Strategy   MissingStrategy `json:"strategy"`
	RowsBefore int             `json:"rows_before"`
	RowsAfter  int             `json:"rows_after"`
	Filled     map[string]int  `json:"filled,omitempty"`
	Promoted   []string        `json:"promoted_to_float,omitempty"`
}

// ColumnSummary holds descriptive statistics for one column. Fields that do
// not apply to the column's kind are nil.
type ColumnSummary struct {
	Name   string     `json:"name"`
	Kind   Kind       `json:"kind"`
	Count  int        `json:"count"`
	Unique *int       `json:"unique,omitempty"`
	Top    any        `json:"top,omitempty"`
	Freq   *int       `json:"freq,omitempty"`
	Mean   *float64   `json:"mean,omitempty"`
	Std    *float64   `json:"std,omitempty"`
	Min    *float64   `json:"min,omitempty"`
	P25    *float64   `json:"25%,omitempty"`
	P50    *float64   `json:"50%,omitempty"`
	P75    *float64   `json:"75%,omitempty"`
	Max    *float64   `json:"max,omitempty"`
	First  *time.Time `json:"first,omitempty"`
	Last   *time.Time `json:"last,omitempty"`
}

// ValueCount is the frequency of one distinct value.
type ValueCount struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

// HistogramBin is a half-open interval [Lower, Upper) and its count. The
// last bin is closed.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is the distribution of a numeric column.
type Histogram struct {
	Column string         `json:"column"`
	Bins   []HistogramBin `json:"bins"`
}

// Outlier is a value outside the boxplot whiskers.
type Outlier struct {
	Row   int     `json:"row"`
	Value float64 `json:"value"`
}

// BoxPlot is the five-number summary of a numeric column with 1.5*IQR
// whiskers.
type BoxPlot struct {
	Column       string    `json:"column"`
	Count        int       `json:"count"`
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []Outlier `json:"outliers"`
}

// CorrelationMatrix holds pairwise Pearson coefficients. Undefined
// coefficients are nil.
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// ScatterPoint is one (x, y) observation.
type ScatterPoint struct {
	Row int     `json:"row"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

// Aggregation names a group-by reducer.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggMean  Aggregation = "mean"
	AggMax   Aggregation = "max"
	AggMin   Aggregation = "min"
	AggCount Aggregation = "count"
)

// GroupResult is one group key and its aggregated value.
type GroupResult struct {
	Key   any      `json:"key"`
	Value *float64 `json:"value"`
}
