package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"datacleaner/internal/dataprocessing"
	"datacleaner/pkg/contracts/domain"
)

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	Sheet     string
	Delimiter string
}

// InspectReport is the JSON form of the inspect output.
type InspectReport struct {
	File       string              `json:"file"`
	Rows       int                 `json:"rows"`
	Duplicates int                 `json:"duplicates"`
	Columns    []domain.ColumnInfo `json:"columns"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(globals *Globals) *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show columns, inferred types and missing values",
		Example: `  datacleaner inspect sales.csv
  datacleaner inspect report.xlsx --sheet Q1 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, globals, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "Worksheet to read from an XLSX workbook")
	cmd.Flags().StringVarP(&opts.Delimiter, "delimiter", "d", "", "CSV field delimiter (default: sniffed)")

	return cmd
}

func runInspect(cmd *cobra.Command, globals *Globals, opts *InspectOptions, file string) error {
	ds, err := loadDataset(cmd, globals, file, opts.Sheet, opts.Delimiter)
	if err != nil {
		return err
	}

	report := InspectReport{
		File:       file,
		Rows:       ds.Rows(),
		Duplicates: dataprocessing.DuplicateCount(ds),
		Columns:    dataprocessing.MissingCounts(ds),
	}
	if globals.JSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s: %d rows, %d columns, %d duplicate rows\n\n",
		report.File, report.Rows, len(report.Columns), report.Duplicates)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Kind", "Non-null", "Missing"})
	for _, c := range report.Columns {
		t.AppendRow(table.Row{c.Name, c.Kind, c.NonNull, c.Missing})
	}
	t.Render()
	return nil
}
