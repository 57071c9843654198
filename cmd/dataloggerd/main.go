// Command dataloggerd serves the Krienen lab data-entry API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lakmecaceres/DataLoggerWeb/docs/openapi"
	"github.com/lakmecaceres/DataLoggerWeb/internal/adapters/httpapi"
	"github.com/lakmecaceres/DataLoggerWeb/internal/blob"
	"github.com/lakmecaceres/DataLoggerWeb/internal/controls"
	"github.com/lakmecaceres/DataLoggerWeb/internal/core"
	"github.com/lakmecaceres/DataLoggerWeb/internal/metrics"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl := os.Getenv("DATALOGGER_LOG_LEVEL"); lvl != "" {
		parsed, err := zap.ParseAtomicLevel(lvl)
		if err != nil {
			return nil, err
		}
		cfg.Level = parsed
	}
	return cfg.Build()
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := blob.Open(ctx)
	if err != nil {
		return err
	}
	ctl, err := controls.Open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ctl.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	svc := core.NewService(store, ctl, logger, m)
	handler := httpapi.NewHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	handler.Register(r)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(openapi.Spec())
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := os.Getenv("DATALOGGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", addr),
			zap.String("blob_driver", string(store.Driver())))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
