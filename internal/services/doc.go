// Package services holds the session store and the health checks behind the
// HTTP and websocket API.
//
// # Sessions
//
// SessionService keeps uploaded datasets in memory, keyed by a UUID. Every
// dataset operation runs under the session's own mutex, so two requests on
// one session are serialized while different sessions proceed in parallel.
// The store mutex only guards the map.
//
//	svc := services.NewSessionService(cfg.Sessions, logger,
//	    services.WithPublisher(hub),
//	    services.WithMetrics(metrics),
//	)
//	go svc.Run(ctx) // expires idle sessions, closes all on shutdown
//
//	resp, err := svc.Create(ctx, services.UploadInput{Filename: "sales.csv", Body: r})
//	outcome, err := svc.Convert(ctx, resp.ID, "day", domain.KindDate)
//
// Mutating operations publish an events.OperationEvent to the session's
// websocket subscribers. Closing, expiring or shutting down a session sends
// session:closed before the subscribers are disconnected.
//
// # Errors
//
// Lookups fail with ErrSessionNotFound, uploads beyond the configured limit
// with ErrTooManySessions and uploads after shutdown with ErrServiceStopped.
// Dataset errors from the dataprocessing package are returned unchanged for
// the transport layer to map.
//
// # Health
//
// HealthService reports liveness, readiness (session capacity, hub and
// export directory) and the stats served on the metrics endpoint.
package services
