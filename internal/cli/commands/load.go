package commands

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"datacleaner/internal/dataprocessing"
	"datacleaner/internal/validation"
)

// fileValidator applies the configured upload limits to local files, so the
// CLI accepts exactly what the service would.
func fileValidator(cmd *cobra.Command, globals *Globals) (*validation.FileValidator, error) {
	cfg, err := globals.LoadConfig()
	if err != nil {
		return nil, err
	}
	return validation.NewFileValidator(globals.Logger(cmd), cfg.Upload), nil
}

func loadDataset(cmd *cobra.Command, globals *Globals, file, sheet, delimiter string) (*dataprocessing.Dataset, error) {
	opts := dataprocessing.LoadOptions{Sheet: sheet}
	if delimiter != "" {
		if utf8.RuneCountInString(delimiter) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
		}
		opts.Delimiter, _ = utf8.DecodeRuneInString(delimiter)
	}

	files, err := fileValidator(cmd, globals)
	if err != nil {
		return nil, err
	}
	if err := files.ValidateFile(file); err != nil {
		return nil, err
	}

	ds, err := dataprocessing.NewLoader(globals.Logger(cmd)).LoadFile(file, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file, err)
	}
	return ds, nil
}
