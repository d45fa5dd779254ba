// Package observability exposes sampling-loop metrics for long bench runs:
// per-label sample and failure counters plus a benchmark duration histogram,
// served on an optional /metrics listener.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsPath     = "/metrics"
	shutdownTimeout = 5 * time.Second
	readTimeout     = 10 * time.Second
)

// Metrics holds the sampling-loop instruments, registered on a private
// registry so repeated construction in tests cannot collide.
type Metrics struct {
	registry *prometheus.Registry

	Samples  *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics creates and registers the sampling instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Samples: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perftool_samples_total",
			Help: "Measurements appended per (benchmark, label).",
		}, []string{"bench", "label"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perftool_sample_failures_total",
			Help: "Failed benchmark invocations per (benchmark, label).",
		}, []string{"bench", "label"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "perftool_bench_duration_seconds",
			Help:    "Wall-clock duration of one benchmark subprocess invocation.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		}),
	}
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. It blocks; run it
// in its own goroutine next to the sampling loop.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, m.Handler())

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: readTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	serveErr := server.ListenAndServe()
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("metrics listener: %w", serveErr)
	}

	return nil
}
