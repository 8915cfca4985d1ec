package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/sgratzl/lineup-if-fi/internal/config"
	"github.com/sgratzl/lineup-if-fi/internal/dataset"
	apierrors "github.com/sgratzl/lineup-if-fi/internal/errors"
	"github.com/sgratzl/lineup-if-fi/internal/infrastructure"
	customMiddleware "github.com/sgratzl/lineup-if-fi/internal/middleware"
	"github.com/sgratzl/lineup-if-fi/internal/pipeline"
	"github.com/sgratzl/lineup-if-fi/internal/schema"
	"github.com/sgratzl/lineup-if-fi/internal/services"
	"github.com/sgratzl/lineup-if-fi/internal/session"
	handlers "github.com/sgratzl/lineup-if-fi/internal/transport/http"
	"github.com/sgratzl/lineup-if-fi/internal/validation"
	ws "github.com/sgratzl/lineup-if-fi/internal/websocket"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts"
	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// RepoURL is reported by /api/version
const RepoURL = "https://github.com/sgratzl/lineup-if-fi"

// gzip level for JSON responses under /api
const responseCompressionLevel = 5

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	WebSocketHub  *ws.Hub
	Lineup        *services.LineupService
	HealthService *services.HealthService
	Watcher       *services.SourceWatcher
}

// NewApplication loads the configuration and logger and wires the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires an application from an explicit configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("data_dir", cfg.Data.Dir))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the hub, the lineup service and the health service
func (a *Application) initializeServices() error {
	wsMetrics, err := ws.NewOTelMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.WebSocketHub = ws.NewHub(a.Logger,
		ws.WithSettings(a.Config.WebSocket),
		ws.WithOTelMetrics(wsMetrics))

	if a.Config.Data.Watch {
		watcher, err := services.NewSourceWatcher(a.Logger, 0)
		if err != nil {
			return fmt.Errorf("failed to start source watcher: %w", err)
		}
		a.Watcher = watcher
	}

	loader := dataset.NewLoader(a.Logger,
		dataset.WithMaxBytes(a.Config.Data.MaxUploadBytes),
		dataset.WithSheet(a.Config.Data.Sheet))

	opts := []services.ServiceOption{
		services.WithHub(a.WebSocketHub),
		services.WithBusinessMetrics(a.Metrics),
		services.WithRunner(pipeline.NewRunner(a.Logger, a.Metrics)),
		services.WithRemoteSources(a.Config.Data.AllowRemote),
		services.WithFetchTimeout(a.Config.Data.FetchTimeout),
		services.WithMaxBytes(a.Config.Data.MaxUploadBytes),
	}
	if a.dataDirUsable() {
		opts = append(opts, services.WithDataDir(a.Config.Data.Dir))
	}
	if a.Watcher != nil {
		opts = append(opts, services.WithWatcher(a.Watcher))
	}
	a.Lineup = services.NewLineupService(session.NewStore(), loader, a.Logger, opts...)
	a.WebSocketHub.SetCommandHandler(a.Lineup.HandleClientMessage)

	a.HealthService = services.NewHealthService(services.BuildInfo{
		Version:   contracts.Version,
		RepoURL:   RepoURL,
		BuildTime: contracts.BuildTime,
		BuildID:   contracts.GitCommit,
	}, a.Config.Data.Dir, a.Lineup, a.WebSocketHub, a.Logger)

	return nil
}

// dataDirUsable reports whether the configured data directory can be listed.
// A missing directory only disables relative sources and dataset listing.
func (a *Application) dataDirUsable() bool {
	if a.Config.Data.Dir == "" {
		return false
	}
	v := validation.NewFileValidator(a.Logger, a.Config.Data.MaxUploadBytes)
	if err := v.ValidateInputDirectory(a.Config.Data.Dir); err != nil {
		a.Logger.Warn("Data directory unavailable, relative sources disabled",
			slog.String("data_dir", a.Config.Data.Dir),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// only middleware that does not wrap the ResponseWriter runs before /ws
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(
		apierrors.RecoveryMiddleware(a.ErrorHandler),
		customMiddleware.WebSocketTraceMiddleware(a.Logger),
	).Get("/ws", a.handleWebSocket)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// RequestID → RealIP → OTel → Logger → Recoverer → SecurityHeaders → CORS → RateLimit → Timeout
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.BusinessMetricsMiddleware(a.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.StripSlashes)
		r.Use(customMiddleware.Compress(responseCompressionLevel))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger, a.ErrorHandler)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.Mount("/metrics", handlers.NewMetricsHandler(a.WebSocketHub).Routes())

		sessionHandler := handlers.NewSessionHandler(a.Lineup, a.Config.Data.MaxUploadBytes, a.Logger, a.ErrorHandler)
		r.Mount("/sessions", sessionHandler.Routes())

		datasetHandler := handlers.NewDatasetHandler(a.Lineup, a.Logger, a.ErrorHandler)
		r.Mount("/datasets", datasetHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.ContentTypeValidator("application/json"))
			r.Post("/describe", datasetHandler.Describe)
			r.Post("/client-log", handlers.NewClientLogHandler(a.Logger, a.ErrorHandler).Handle)
		})
	})
}

// corsConfig returns the CORS configuration for the API group
func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowCredentials: true,
	}
}

// checkOrigin accepts same-host origins and, with CORS enabled, the
// configured origins. Requests without an Origin header are not from a browser.
func (a *Application) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}

	if a.Config.Security.EnableCORS {
		for _, allowed := range a.Config.Security.AllowedOrigins {
			if allowed == "*" || allowed == origin {
				return true
			}
		}
	}

	a.Logger.WarnContext(r.Context(), "WebSocket origin check - origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", a.Config.Security.AllowedOrigins))
	return false
}

// handleWebSocket upgrades the connection and hands it to the hub
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := customMiddleware.GetReqID(ctx)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin:     a.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			a.ErrorHandler.HandleError(w, r, apierrors.ErrWebSocketUpgrade.WithStatus(status).WithDetails(reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ws.ServeWS(a.WebSocketHub, conn, reqID, a.Logger)
	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// loadDefaultSource opens a session for the configured default dataset
func (a *Application) loadDefaultSource(ctx context.Context) error {
	if a.Config.Data.DefaultSource == "" {
		return nil
	}

	var desc *domain.Description
	if a.Config.Data.Description != "" {
		d, err := schema.LoadDescriptionFile(a.Config.Data.Description)
		if err != nil {
			return apierrors.NewDescriptionError("default description could not be read", err)
		}
		desc = &d
	}

	sum, err := a.Lineup.Load(ctx, services.LoadRequest{
		Source:      a.Config.Data.DefaultSource,
		Description: desc,
	})
	if err != nil {
		return err
	}

	a.Logger.InfoContext(ctx, "Default dataset loaded",
		slog.String("session_id", sum.ID),
		slog.String("source", sum.Source),
		slog.Int("items", sum.Items.Rows),
		slog.Int("features", sum.Features.Rows))
	return nil
}

// Start starts the hub, loads the default dataset and starts serving.
// cancel is called when the listener fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()

	if err := a.loadDefaultSource(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Default dataset could not be loaded",
			slog.String("source", a.Config.Data.DefaultSource),
			slog.String("error", err.Error()))
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", "http://"+a.Server.Addr))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if err := a.Lineup.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing source watcher", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}

// Run runs the application until interrupted or the listener fails
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}
