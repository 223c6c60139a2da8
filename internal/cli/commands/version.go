package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"datacleaner/pkg/contracts"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(globals *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := contracts.GetVersionInfo()
			if globals.JSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info)
			return err
		},
	}
}
