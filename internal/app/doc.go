// Package app wires the datacleaner service together and manages its
// lifecycle.
//
// New builds every component from a config.Config: the slog logger, the
// OpenTelemetry providers and business metrics, the websocket hub, the
// session store and the HTTP router. Run then serves HTTP while the hub and
// the idle session sweeper run alongside it in one errgroup; cancelling the
// context shuts all three down and closes the remaining sessions.
//
// Routes:
//
//	/ws?session={id}     live operation feed of one session
//	/api/health...       health, readiness, liveness and version
//	/api/v1/...          session and dataset operations
//	{metrics_path}       Prometheus scrape endpoint
//	{metrics_path}/stats JSON runtime counters
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
