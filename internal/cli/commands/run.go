package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"datacleaner/internal/pipeline"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Output string
	BOM    bool
}

// NewRunCommand creates the run command.
func NewRunCommand(globals *Globals) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run PIPELINE",
		Short: "Run a YAML cleaning pipeline",
		Long: `Load the pipeline's input file, apply its steps in order and write the
result as CSV. A failed step stops the run unless it sets continue_on_error.

Step types: drop_columns, missing, dedupe, convert.`,
		Example: `  datacleaner run clean.yaml
  datacleaner run clean.yaml --output /tmp/out.csv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, globals, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output CSV file (overrides the pipeline)")
	cmd.Flags().BoolVar(&opts.BOM, "bom", false, "Prefix the output with a UTF-8 byte order mark")

	return cmd
}

func runPipeline(cmd *cobra.Command, globals *Globals, opts *RunOptions, path string) error {
	def, err := pipeline.LoadDefinition(path)
	if err != nil {
		return err
	}
	if opts.Output != "" {
		def.Output = opts.Output
	}
	if opts.BOM {
		def.BOM = true
	}

	files, err := fileValidator(cmd, globals)
	if err != nil {
		return err
	}
	if err := files.ValidateOutputDirectory(filepath.Dir(def.Output)); err != nil {
		return err
	}

	result, runErr := pipeline.NewRunner(globals.Logger(cmd)).Run(cmd.Context(), def)
	if result == nil {
		return runErr
	}

	if globals.JSON {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	}

	out := cmd.OutOrStdout()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Step", "Status", "Rows", "Columns", "Detail"})
	for _, st := range result.Steps {
		detail := st.Message
		if st.Error != "" {
			detail = st.Error
		}
		t.AppendRow(table.Row{st.ID, st.Status, st.Rows, st.Columns, detail})
	}
	t.Render()

	if runErr != nil {
		return runErr
	}
	_, _ = fmt.Fprintf(out, "\nWrote %d rows, %d columns to %s in %s\n",
		result.Rows, result.Columns, result.Output, result.Duration.Round(time.Millisecond))
	return nil
}
