// Package exporter writes datasets out as CSV.
//
// CSVWriter renders every value with dataprocessing.FormatValue, writes the
// header row first and never writes a row index. Missing values become empty
// fields. An optional UTF-8 BOM helps spreadsheet applications detect the
// encoding.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter("data/exports", logger)
//
//	// Stream to an HTTP response
//	err := writer.WriteDataset(w, ds, exporter.WriteOptions{BOMPrefix: true})
//
//	// Or write cleaned_data.csv into the output directory
//	path, err := writer.WriteFile(exporter.ExportFileName, ds, exporter.WriteOptions{})
package exporter
