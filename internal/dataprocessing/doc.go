// Package dataprocessing holds the in-memory tabular model and every operation
// that reads or mutates it: ingestion, type coercion, cleaning and analytics.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Loader: turns CSV, XLSX or JSON input into a Dataset, inferring column kinds
// 2. Coercer: converts a column to a requested kind, or explains why it cannot
// 3. Cleaning: missing value strategies, duplicate removal, column deletion
// 4. Analytics: describe, value counts, histograms, boxplots, correlation, group by
//
// # Usage
//
// Loading and converting a column:
//
//	loader := dataprocessing.NewLoader(logger)
//	ds, err := loader.LoadFile("sales.csv", dataprocessing.LoadOptions{})
//	if err != nil {
//	    return err
//	}
//
//	coercer := dataprocessing.NewCoercer(logger)
//	outcome, err := coercer.Convert(ds, "price", domain.KindFloat)
//
// # Data Flow
//
//	File → Loader → Dataset → (Cleaning | Coercer)* → Analytics / CSV export
//
// # Missing values
//
// A missing cell is stored as nil. Every other value carries the Go type of its
// column kind: int64, float64, string, time.Time or bool. Object columns hold
// decoded JSON (maps and slices).
//
// # Error Handling
//
// Coercion failures are returned as *CoercionError, which unwraps to one of
// ErrNonIntegerFloatValues, ErrNonNumericValue or ErrDateExtraction. A failed
// operation never mutates the dataset.
package dataprocessing
