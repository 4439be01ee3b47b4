// Package server exposes the health, report and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nholik/bq-sentinel/internal/healthcheck"
	"github.com/nholik/bq-sentinel/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Config selects listener ports. A zero port disables that listener; equal
// ports share one listener.
type Config struct {
	HealthPort   int
	MetricsPort  int
	PollInterval time.Duration
}

// Start launches the configured listeners. They shut down when ctx is done.
func Start(ctx context.Context, logger zerolog.Logger, cfg Config, tracker *healthcheck.Tracker, metricsCollector *metrics.Metrics) {
	for _, l := range listeners(cfg, tracker, metricsCollector) {
		startServer(ctx, logger, withRequestLog(logger, l.handler), l.port, l.label)
	}
}

type listener struct {
	label   string
	port    int
	handler http.Handler
}

func listeners(cfg Config, tracker *healthcheck.Tracker, metricsCollector *metrics.Metrics) []listener {
	if cfg.HealthPort > 0 && cfg.HealthPort == cfg.MetricsPort {
		mux := http.NewServeMux()
		registerHealthRoutes(mux, tracker, cfg.PollInterval)
		registerMetricsRoute(mux, metricsCollector)
		return []listener{{label: "health/metrics", port: cfg.HealthPort, handler: mux}}
	}

	var result []listener
	if cfg.HealthPort > 0 {
		mux := http.NewServeMux()
		registerHealthRoutes(mux, tracker, cfg.PollInterval)
		result = append(result, listener{label: "health", port: cfg.HealthPort, handler: mux})
	}
	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		registerMetricsRoute(mux, metricsCollector)
		result = append(result, listener{label: "metrics", port: cfg.MetricsPort, handler: mux})
	}
	return result
}

func registerHealthRoutes(mux *http.ServeMux, tracker *healthcheck.Tracker, pollInterval time.Duration) {
	mux.HandleFunc("GET /healthz", healthcheck.HealthHandler(tracker, pollInterval))
	mux.HandleFunc("GET /readyz", healthcheck.ReadyHandler(tracker))
	mux.HandleFunc("GET /report", healthcheck.ReportHandler(tracker))
}

func registerMetricsRoute(mux *http.ServeMux, metricsCollector *metrics.Metrics) {
	if metricsCollector == nil {
		return
	}
	mux.Handle("GET /metrics", metricsCollector.Handler())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withRequestLog(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		logger.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func startServer(ctx context.Context, logger zerolog.Logger, handler http.Handler, port int, label string) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serverLogger := logger.With().Str("server", label).Int("port", port).Logger()

	go func() {
		serverLogger.Info().Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Error().Err(err).Msg("http server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			serverLogger.Error().Err(err).Msg("http server shutdown failed")
		}
	}()
}
