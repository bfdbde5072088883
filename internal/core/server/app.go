package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	coreConfig "github.com/lee-tech/hrportal/internal/core/config"
	coreLog "github.com/lee-tech/hrportal/internal/core/log"
	coreMiddleware "github.com/lee-tech/hrportal/internal/core/middleware"
	"github.com/lee-tech/hrportal/internal/core/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HTTPAppOptions tunes InitializeHTTPApp.
type HTTPAppOptions struct {
	// Migrations are auto-migrated in addition to the registered models.
	Migrations           []any
	InitialComponents    map[string]any
	AdditionalMiddleware []mux.MiddlewareFunc
	DisableHealthRoutes  bool
	// DisableHandlers skips registered route registrars, for CLI use.
	DisableHandlers bool
	// DB replaces the configured database connection.
	DB *gorm.DB
	// Logger replaces the process logger.
	Logger *zap.Logger
}

// HTTPApp bundles the router, database and component container of a service.
type HTTPApp struct {
	Config   *coreConfig.Config
	Router   *mux.Router
	DB       *gorm.DB
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *coreMiddleware.HTTPMetrics

	server *http.Server

	mu          sync.Mutex
	components  map[string]interface{}
	factories   map[string]ComponentFactory
	building    map[string]bool
	buildErrors []error
	closers     []func(context.Context) error
}

// InitializeHTTPApp connects the database, runs migrations, builds every
// registered component and mounts the registered handlers.
func InitializeHTTPApp(cfg *coreConfig.Config, opts *HTTPAppOptions) (*HTTPApp, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts == nil {
		opts = &HTTPAppOptions{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = coreLog.Init(cfg.LogLevel, cfg.ServiceName, cfg.ServiceVersion)
	}

	db := opts.DB
	if db == nil {
		var err error
		db, err = OpenDatabase(cfg)
		if err != nil {
			return nil, err
		}
	}

	migrations := append(registeredMigrations(), opts.Migrations...)
	if len(migrations) > 0 {
		if err := db.AutoMigrate(migrations...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	app := &HTTPApp{
		Config:     cfg,
		Router:     mux.NewRouter(),
		DB:         db,
		Logger:     logger,
		Registry:   prometheus.NewRegistry(),
		components: map[string]interface{}{},
		factories:  map[string]ComponentFactory{},
		building:   map[string]bool{},
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app.Router.Use(
		coreMiddleware.RequestID(),
		coreMiddleware.Recovery(logger),
		coreMiddleware.Logging(logger),
		coreMiddleware.CORS(func() []string { return cfg.CORSAllowedOrigins }),
	)
	if cfg.MetricsEnabled {
		app.Metrics = coreMiddleware.NewHTTPMetrics(app.Registry, cfg.ServiceName)
		app.Router.Use(app.Metrics.Middleware())
		app.Router.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	for _, mw := range opts.AdditionalMiddleware {
		if mw != nil {
			app.Router.Use(mw)
		}
	}
	app.Router.HandleFunc("/openapi.json", app.serveOpenAPI).Methods(http.MethodGet)
	if !opts.DisableHealthRoutes {
		app.Router.HandleFunc("/healthz", app.liveness).Methods(http.MethodGet)
		app.Router.HandleFunc("/readyz", app.readiness).Methods(http.MethodGet)
	}

	for key, component := range opts.InitialComponents {
		app.components[key] = component
	}

	entries := registeredFactories()
	for _, entry := range entries {
		if _, exists := app.components[entry.key]; exists {
			continue
		}
		app.factories[entry.key] = entry.factory
	}
	for _, entry := range entries {
		app.GetComponent(entry.key)
	}
	if err := errors.Join(app.buildErrors...); err != nil {
		return nil, err
	}

	if !opts.DisableHandlers {
		for _, registrar := range registeredHandlers() {
			if err := registrar(app); err != nil {
				return nil, fmt.Errorf("register handler: %w", err)
			}
		}
	}

	return app, nil
}

// OnShutdown registers fn to run during Shutdown, in reverse registration order.
func (a *HTTPApp) OnShutdown(fn func(context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *HTTPApp) Run() {
	a.server = &http.Server{
		Addr:         a.Config.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  a.Config.ReadTimeout,
		WriteTimeout: a.Config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", zap.String("addr", a.Config.HTTPAddr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		a.Logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		a.Logger.Error("http server failed", zap.Error(err))
	}

	timeout := a.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		a.Logger.Error("shutdown failed", zap.Error(err))
	}
}

// Shutdown stops the HTTP server, runs shutdown hooks and closes the database.
func (a *HTTPApp) Shutdown(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	a.mu.Lock()
	closers := append([]func(context.Context) error(nil), a.closers...)
	a.mu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}

func (a *HTTPApp) liveness(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *HTTPApp) readiness(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		a.Logger.Warn("readiness check failed", zap.Error(err))
		utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
