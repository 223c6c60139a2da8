package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"datacleaner/internal/app"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Host string
	Port int
}

// NewServeCommand creates the serve command.
func NewServeCommand(globals *Globals) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket API",
		Long: `Start the session API. Configuration comes from the config file and
DC_* environment variables; --host and --port override the listen address.`,
		Example: `  # Serve with the default configuration
  datacleaner serve

  # Serve on another port
  datacleaner serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, globals, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "Listen port (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, globals *Globals, opts *ServeOptions) error {
	cfg, err := globals.LoadConfig()
	if err != nil {
		return err
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return application.Run(cmd.Context())
}
