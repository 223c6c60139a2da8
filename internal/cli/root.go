// Package cli provides the datacleaner command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"datacleaner/internal/cli/commands"
	"datacleaner/pkg/contracts"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	globals := &commands.Globals{}

	rootCmd := &cobra.Command{
		Use:   "datacleaner",
		Short: "Clean tabular data and coerce column types",
		Long: `datacleaner loads CSV, XLSX and JSON files, reports missing values and
duplicates, converts column types and exports the cleaned data as CSV.

Run "datacleaner serve" for the HTTP and websocket API, or use the other
commands to work on local files directly.`,
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&globals.ConfigFile, "config", "", "config file (default: ./datacleaner.yaml or ./configs/datacleaner.yaml)")
	rootCmd.PersistentFlags().StringVar(&globals.LogLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&globals.JSON, "json", false, "Print results as JSON")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewServeCommand(globals))
	rootCmd.AddCommand(commands.NewInspectCommand(globals))
	rootCmd.AddCommand(commands.NewConvertCommand(globals))
	rootCmd.AddCommand(commands.NewRunCommand(globals))
	rootCmd.AddCommand(commands.NewVersionCommand(globals))

	return rootCmd
}
