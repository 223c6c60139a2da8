package http

import (
	"context"
	"io"

	"datacleaner/internal/exporter"
	"datacleaner/internal/services"
	api "datacleaner/pkg/contracts/api/v1"
	"datacleaner/pkg/contracts/domain"
)

// SessionServiceInterface defines the dataset operations behind the session
// routes.
type SessionServiceInterface interface {
	Create(ctx context.Context, in services.UploadInput) (api.SessionResponse, error)
	ListSheets(ctx context.Context, r io.Reader) ([]string, error)
	Get(ctx context.Context, id string) (api.SessionResponse, error)
	Close(ctx context.Context, id string) error

	Preview(ctx context.Context, id, mode string, n int) (domain.Preview, error)
	DropColumns(ctx context.Context, id string, columns []string) (api.DropColumnsResponse, error)
	Missing(ctx context.Context, id string) (api.MissingResponse, error)
	MissingMatrix(ctx context.Context, id string) (domain.MissingMatrix, error)
	ApplyMissing(ctx context.Context, id string, strategy domain.MissingStrategy) (domain.FillReport, error)
	Duplicates(ctx context.Context, id string) (api.DuplicatesResponse, error)
	DropDuplicates(ctx context.Context, id string) (api.DuplicatesResponse, error)
	Convert(ctx context.Context, id, column string, target domain.Kind) (domain.ConversionOutcome, error)

	Describe(ctx context.Context, id string) ([]domain.ColumnSummary, error)
	ValueCounts(ctx context.Context, id, column string) (api.ValueCountsResponse, error)
	Histogram(ctx context.Context, id, column string, bins int) (domain.Histogram, error)
	BoxPlot(ctx context.Context, id, column string) (domain.BoxPlot, error)
	Outliers(ctx context.Context, id, column string) (api.OutliersResponse, error)
	Correlation(ctx context.Context, id string) (domain.CorrelationMatrix, error)
	Scatter(ctx context.Context, id, x, y string) (api.ScatterResponse, error)
	GroupBy(ctx context.Context, id, by, value string, agg domain.Aggregation) (api.GroupByResponse, error)
	Trend(ctx context.Context, id, timeColumn, value string) (api.TrendResponse, error)

	Export(ctx context.Context, id string, w io.Writer, opts exporter.WriteOptions) error
}
