package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"datacleaner/internal/config"
	"datacleaner/internal/errors"
	"datacleaner/internal/infrastructure"
	customMiddleware "datacleaner/internal/middleware"
	"datacleaner/internal/services"
	handlers "datacleaner/internal/transport/http"
	"datacleaner/internal/validation"
	ws "datacleaner/internal/websocket"
	"datacleaner/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.BusinessMetrics
	WebSocketHub   *ws.Hub
	SessionService *services.SessionService
	HealthService  *services.HealthService
	ErrorHandler   *errors.ErrorHandler
	Files          *validation.FileValidator
}

// New wires every component from cfg. Nothing is started until Run.
func New(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", cfg.Server.Addr()))

	paths, err := cfg.ResolvePaths("")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices creates the hub, the session store and the health
// service.
func (a *Application) initializeServices() {
	opts := ws.OptionsFromConfig(a.Config.WebSocket, a.Config.Security)
	opts.Metrics = a.Metrics
	a.WebSocketHub = ws.NewHub(a.Logger, opts)

	a.SessionService = services.NewSessionService(a.Config.Sessions, a.Logger,
		services.WithPublisher(a.WebSocketHub),
		services.WithMetrics(a.Metrics),
		services.WithTracer(a.OTelProviders.Tracer),
	)

	a.HealthService = services.NewHealthService(
		a.SessionService,
		a.Config.Sessions.MaxSessions,
		a.WebSocketHub,
		a.Paths.ExportDir,
		a.Logger,
	)

	a.Files = validation.NewFileValidator(a.Logger, a.Config.Upload)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Only middleware that leaves the ResponseWriter hijackable runs before
	// the websocket route.
	r.Use(customMiddleware.RequestID)

	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, a.SessionService, a.Logger, a.ErrorHandler)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Get("/ws", wsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		// RequestID → OTel → Logger → Recoverer → SecurityHeaders → CORS → RateLimit
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)

		metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.HealthService)
		r.Mount(a.Config.Telemetry.MetricsPath, metricsHandler.Routes())
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		sessionHandler := handlers.NewSessionHandler(a.SessionService, a.Files, a.Logger, a.ErrorHandler)
		r.Mount("/v1", sessionHandler.Routes())

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/", healthHandler.Routes())
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Location",
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves HTTP until ctx is cancelled or the server fails. The websocket
// hub and the session sweeper share its lifetime.
func (a *Application) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, listener net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.WebSocketHub.Run(gctx)
	})
	g.Go(func() error {
		return a.SessionService.Run(gctx)
	})
	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Server listening",
			slog.String("address", listener.Addr().String()),
			slog.String("metrics_path", a.Config.Telemetry.MetricsPath))
		if err := a.Server.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.shutdownServer()
	})

	err := g.Wait()
	a.shutdownTelemetry()
	a.Logger.Info("Application shutdown complete")
	if cerr := infrastructure.CloseLogFile(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close log file: %w", cerr)
	}
	return err
}

func (a *Application) shutdownServer() error {
	a.Logger.Info("Shutting down HTTP server",
		slog.Duration("timeout", a.Config.Server.ShutdownTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func (a *Application) shutdownTelemetry() {
	if a.OTelProviders == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.Error("Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}
}
