package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"datacleaner/internal/dataprocessing"
)

// ExportFileName is the name given to exported datasets.
const ExportFileName = "cleaned_data.csv"

// ContentType is the media type of exported data.
const ContentType = "text/csv; charset=utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	outputDir string
	logger    *slog.Logger
}

// NewCSVWriter creates a writer that resolves relative paths against
// outputDir.
func NewCSVWriter(outputDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		outputDir: outputDir,
		logger:    logger.With(slog.String("component", "csv_writer")),
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	Delimiter rune
}

// WriteDataset streams ds to w, header first.
func (w *CSVWriter) WriteDataset(out io.Writer, ds *dataprocessing.Dataset, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}

	if err := writer.Write(ds.Names()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	columns := ds.Columns()
	record := make([]string, len(columns))
	for i := 0; i < ds.Rows(); i++ {
		for j, col := range columns {
			record[j] = dataprocessing.FormatValue(col.Values[i])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	w.logger.Info("CSV written",
		slog.Int("rows", ds.Rows()),
		slog.Int("columns", ds.Width()),
		slog.Bool("bom", options.BOMPrefix))
	return nil
}

// WriteFile writes ds to filePath, creating parent directories as needed,
// and returns the resolved path.
func (w *CSVWriter) WriteFile(filePath string, ds *dataprocessing.Dataset, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := w.WriteDataset(file, ds, options); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	w.logger.Debug("CSV file created", slog.String("full_path", fullPath))
	return fullPath, nil
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filePath == "" {
		filePath = ExportFileName
	}
	if filepath.IsAbs(filePath) || w.outputDir == "" {
		return filePath
	}
	return filepath.Join(w.outputDir, filePath)
}
