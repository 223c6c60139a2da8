package commands

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"datacleaner/internal/config"
	"datacleaner/internal/infrastructure"
)

// Globals holds the persistent flags shared by every command.
type Globals struct {
	ConfigFile string
	LogLevel   string
	JSON       bool
}

// Logger returns a logger writing to the command's stderr so stdout stays
// clean for results.
func (g *Globals) Logger(cmd *cobra.Command) *slog.Logger {
	return infrastructure.NewConsoleLogger(cmd.ErrOrStderr(), g.LogLevel)
}

// LoadConfig loads the service configuration, honouring --config.
func (g *Globals) LoadConfig() (*config.Config, error) {
	if g.ConfigFile == "" {
		return config.Load()
	}
	return config.LoadFile(g.ConfigFile)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
