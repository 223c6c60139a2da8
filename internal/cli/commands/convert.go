package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"datacleaner/internal/dataprocessing"
	"datacleaner/internal/exporter"
	"datacleaner/pkg/contracts/domain"
)

// ConvertOptions holds options for the convert command.
type ConvertOptions struct {
	Column    string
	To        string
	Output    string
	Sheet     string
	Delimiter string
	BOM       bool
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(globals *Globals) *cobra.Command {
	opts := &ConvertOptions{}

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Convert one column to another type and write the result as CSV",
		Long: `Convert one column to integer, float, string, date, year or month and
write the whole dataset to --output. A rejected conversion leaves no output
file behind and exits non-zero.`,
		Example: `  datacleaner convert sales.csv --column day --to date
  datacleaner convert sales.csv --column units --to integer -o units.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, globals, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Column, "column", "c", "", "Column to convert")
	cmd.Flags().StringVarP(&opts.To, "to", "t", "", "Target type (integer|float|string|date|year|month)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", exporter.ExportFileName, "Output CSV file")
	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "Worksheet to read from an XLSX workbook")
	cmd.Flags().StringVarP(&opts.Delimiter, "delimiter", "d", "", "CSV field delimiter (default: sniffed)")
	cmd.Flags().BoolVar(&opts.BOM, "bom", false, "Prefix the output with a UTF-8 byte order mark")
	_ = cmd.MarkFlagRequired("column")
	_ = cmd.MarkFlagRequired("to")

	_ = cmd.RegisterFlagCompletionFunc("to", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"integer", "float", "string", "date", "year", "month"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runConvert(cmd *cobra.Command, globals *Globals, opts *ConvertOptions, file string) error {
	target, err := domain.ParseKind(opts.To)
	if err != nil {
		return err
	}
	if !target.IsTarget() {
		return fmt.Errorf("%w: %s", dataprocessing.ErrUnsupportedTarget, opts.To)
	}

	ds, err := loadDataset(cmd, globals, file, opts.Sheet, opts.Delimiter)
	if err != nil {
		return err
	}

	logger := globals.Logger(cmd)
	outcome, err := dataprocessing.NewCoercer(logger).Convert(ds, opts.Column, target)
	if err != nil {
		var coercionErr *dataprocessing.CoercionError
		if globals.JSON && errors.As(err, &coercionErr) {
			_ = writeJSON(cmd.OutOrStdout(), outcome)
		}
		return err
	}

	files, err := fileValidator(cmd, globals)
	if err != nil {
		return err
	}
	if err := files.ValidateOutputDirectory(filepath.Dir(opts.Output)); err != nil {
		return err
	}

	path, err := exporter.NewCSVWriter("", logger).WriteFile(opts.Output, ds,
		exporter.WriteOptions{BOMPrefix: opts.BOM})
	if err != nil {
		return err
	}

	if globals.JSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			domain.ConversionOutcome
			Output string `json:"output"`
		}{outcome, path})
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "[%s] %s\n", outcome.Level(), outcome.Message)
	_, _ = fmt.Fprintf(out, "Wrote %d rows to %s\n", ds.Rows(), path)
	return nil
}
