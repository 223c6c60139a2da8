package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datacleaner/internal/dataprocessing"
	"datacleaner/internal/pipeline"
	"datacleaner/internal/shared/testutil"
	"datacleaner/pkg/contracts"
	"datacleaner/pkg/contracts/domain"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func salesFile(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(testutil.SalesCSV), 0o644))
	return dir, path
}

func TestCommandMetadata(t *testing.T) {
	g := &Globals{}
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewServeCommand(g), "serve", []string{"host", "port"}},
		{NewInspectCommand(g), "inspect FILE", []string{"sheet", "delimiter"}},
		{NewConvertCommand(g), "convert FILE", []string{"column", "to", "output", "sheet", "delimiter", "bom"}},
		{NewRunCommand(g), "run PIPELINE", []string{"output", "bom"}},
		{NewVersionCommand(g), "version", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), "flag %s", name)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand(&Globals{}))
	require.NoError(t, err)
	assert.Contains(t, out, "datacleaner v"+contracts.Version)

	out, err = execute(t, NewVersionCommand(&Globals{JSON: true}))
	require.NoError(t, err)
	var info contracts.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, contracts.APIVersion, info.APIVersion)
}

func TestInspectCommand(t *testing.T) {
	_, file := salesFile(t)

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, NewInspectCommand(&Globals{LogLevel: "error"}), file)
		require.NoError(t, err)
		assert.Contains(t, out, "4 rows, 4 columns, 1 duplicate rows")
		assert.Contains(t, out, "NON-NULL")
		assert.Regexp(t, `│ price\s+│ float\s+│\s+3 │\s+1 │`, out)
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, NewInspectCommand(&Globals{LogLevel: "error", JSON: true}), file)
		require.NoError(t, err)

		var report InspectReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 4, report.Rows)
		assert.Equal(t, 1, report.Duplicates)
		require.Len(t, report.Columns, 4)
		assert.Equal(t, "price", report.Columns[2].Name)
		assert.Equal(t, 1, report.Columns[2].Missing)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, NewInspectCommand(&Globals{LogLevel: "error"}), filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})

	t.Run("bad delimiter", func(t *testing.T) {
		_, err := execute(t, NewInspectCommand(&Globals{LogLevel: "error"}), file, "--delimiter", ";;")
		assert.ErrorContains(t, err, "single character")
	})
}

func TestConvertCommand(t *testing.T) {
	t.Run("writes converted csv", func(t *testing.T) {
		dir, file := salesFile(t)
		output := filepath.Join(dir, "out.csv")

		out, err := execute(t, NewConvertCommand(&Globals{LogLevel: "error"}),
			file, "--column", "day", "--to", "date", "-o", output)
		require.NoError(t, err)
		assert.Contains(t, out, "[success]")
		assert.Contains(t, out, "Wrote 4 rows")

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "region,units,price,day\n"))
	})

	t.Run("rejected conversion writes nothing", func(t *testing.T) {
		dir, file := salesFile(t)
		output := filepath.Join(dir, "out.csv")

		out, err := execute(t, NewConvertCommand(&Globals{LogLevel: "error", JSON: true}),
			file, "--column", "price", "--to", "integer", "-o", output)
		var coercionErr *dataprocessing.CoercionError
		require.ErrorAs(t, err, &coercionErr)
		assert.Equal(t, domain.ReasonNonIntegerFloatValues, coercionErr.Reason)
		assert.NoFileExists(t, output)

		var outcome domain.ConversionOutcome
		require.NoError(t, json.Unmarshal([]byte(out), &outcome))
		assert.Equal(t, domain.StatusFailed, outcome.Status)
	})

	t.Run("unsupported target", func(t *testing.T) {
		_, file := salesFile(t)
		_, err := execute(t, NewConvertCommand(&Globals{LogLevel: "error"}),
			file, "--column", "units", "--to", "bool")
		assert.ErrorIs(t, err, dataprocessing.ErrUnsupportedTarget)
	})

	t.Run("required flags", func(t *testing.T) {
		_, file := salesFile(t)
		_, err := execute(t, NewConvertCommand(&Globals{}), file)
		assert.Error(t, err)
	})
}

func TestRunCommand(t *testing.T) {
	dir, _ := salesFile(t)
	def := `input: sales.csv
output: cleaned.csv
steps:
  - type: missing
    strategy: mean
  - type: dedupe
  - type: convert
    column: day
    to: date
`
	path := filepath.Join(dir, "clean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(def), 0o644))

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, NewRunCommand(&Globals{LogLevel: "error"}), path)
		require.NoError(t, err)
		assert.Contains(t, out, "STATUS")
		assert.Regexp(t, `│ 2-dedupe\s+│ completed\s+│`, out)
		assert.Contains(t, out, "removed 1 duplicate row(s)")
		assert.FileExists(t, filepath.Join(dir, "cleaned.csv"))
	})

	t.Run("json with output override", func(t *testing.T) {
		override := filepath.Join(t.TempDir(), "override.csv")
		out, err := execute(t, NewRunCommand(&Globals{LogLevel: "error", JSON: true}), path, "-o", override)
		require.NoError(t, err)

		var result pipeline.Result
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, override, result.Output)
		assert.Equal(t, 3, result.Rows)
		assert.FileExists(t, override)
	})

	t.Run("invalid pipeline", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("input: sales.csv\nsteps:\n  - type: pivot\n"), 0o644))
		_, err := execute(t, NewRunCommand(&Globals{LogLevel: "error"}), bad)
		assert.ErrorIs(t, err, pipeline.ErrInvalidDefinition)
	})
}
