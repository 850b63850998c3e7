// Package app assembles the HTTP driving interface: router, middleware,
// pipeline service and run-history store.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edupulse/internal/config"
	"edupulse/internal/services"
	"edupulse/internal/state"
	transporthttp "edupulse/internal/transport/http"
)

// App wires the application components together.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *services.PipelineService
	server   *http.Server
}

// New builds the application from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := state.Open(cfg.Paths.StateFile)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	pipeline := services.NewPipelineService(cfg, logger, store)

	app := &App{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
	}
	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

// router builds the chi router with the standard middleware chain.
func (a *App) router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(transporthttp.RequestTracing)
	r.Use(transporthttp.RequestLogger(a.logger))
	r.Use(transporthttp.RateLimit(a.cfg.Server.RateLimit))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	handler := transporthttp.NewPipelineHandler(a.pipeline, a.logger)
	r.Mount("/api/pipeline", handler.Routes())

	return r
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down http server")
	return a.server.Shutdown(shutdownCtx)
}
