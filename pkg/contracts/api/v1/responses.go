package api

import (
	"time"

	"datacleaner/pkg/contracts/domain"
)

// SessionResponse describes an open session and its dataset.
type SessionResponse struct {
	ID         string             `json:"id"`
	Filename   string             `json:"filename"`
	Format     string             `json:"format"`
	Sheet      string             `json:"sheet,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	LastAccess time.Time          `json:"last_access"`
	Info       domain.DatasetInfo `json:"info"`
}

// SheetsResponse lists the sheets of an uploaded workbook.
type SheetsResponse struct {
	Sheets []string `json:"sheets"`
}

// DropColumnsResponse reports the columns removed and the new shape.
type DropColumnsResponse struct {
	Dropped []string           `json:"dropped"`
	Info    domain.DatasetInfo `json:"info"`
}

// MissingResponse holds the per-column missing counts.
type MissingResponse struct {
	Rows    int                 `json:"rows"`
	Columns []domain.ColumnInfo `json:"columns"`
}

// DuplicatesResponse reports duplicate rows. Removed is set only when
// duplicates were dropped.
type DuplicatesResponse struct {
	Duplicates int  `json:"duplicates"`
	Removed    *int `json:"removed,omitempty"`
	Rows       int  `json:"rows"`
}

// ConvertResponse carries a conversion outcome. Warning repeats the
// message when values were lost.
type ConvertResponse struct {
	Outcome domain.ConversionOutcome `json:"outcome"`
	Level   string                   `json:"level"`
	Warning string                   `json:"warning,omitempty"`
}

// ValueCountsResponse lists distinct values by descending frequency.
type ValueCountsResponse struct {
	Column string              `json:"column"`
	Counts []domain.ValueCount `json:"counts"`
}

// OutliersResponse lists values beyond the boxplot whiskers.
type OutliersResponse struct {
	Column   string           `json:"column"`
	Outliers []domain.Outlier `json:"outliers"`
}

// ScatterResponse holds the complete (x, y) pairs of two numeric columns.
type ScatterResponse struct {
	X      string                `json:"x"`
	Y      string                `json:"y"`
	Points []domain.ScatterPoint `json:"points"`
}

// GroupByResponse holds aggregated groups sorted by key.
type GroupByResponse struct {
	By     string               `json:"by"`
	Value  string               `json:"value"`
	Agg    domain.Aggregation   `json:"agg"`
	Groups []domain.GroupResult `json:"groups"`
}

// TrendResponse holds the mean of a value per time key.
type TrendResponse struct {
	Time   string               `json:"time"`
	Value  string               `json:"value"`
	Points []domain.GroupResult `json:"points"`
}

// DescribeResponse holds the descriptive statistics of every column.
type DescribeResponse struct {
	Columns []domain.ColumnSummary `json:"columns"`
}
