// Package metrics exposes prometheus counters for fetches, generation
// attempts and batch rows.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_fetch_requests_total",
			Help: "Total number of source pages fetched for research",
		},
		[]string{"domain", "status", "challenge"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quill_fetch_duration_seconds",
			Help:    "Duration of source page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_fetch_bytes_total",
			Help: "Total bytes downloaded across all source fetches",
		},
		[]string{"domain"},
	)

	GenerationCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_generation_calls_total",
			Help: "Total number of language model calls by kind and result",
		},
		[]string{"kind", "result"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quill_generation_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: []float64{1, 5, 10, 20, 40, 60, 120, 240},
		},
		[]string{"kind"},
	)

	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_generation_attempts_total",
			Help: "Total number of generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_rows_total",
			Help: "Total number of spreadsheet rows processed by status",
		},
		[]string{"status"},
	)
)

// RecordFetch updates the fetch metrics for one page. status is 0 when the
// request failed before a response arrived.
func RecordFetch(domain string, status int, challenge string, bytes int, d time.Duration) {
	statusStr := "error"
	if status > 0 {
		statusStr = strconv.Itoa(status)
	}
	FetchRequestsTotal.WithLabelValues(domain, statusStr, challenge).Inc()
	FetchDuration.WithLabelValues(domain).Observe(d.Seconds())
	FetchBytesTotal.WithLabelValues(domain).Add(float64(bytes))
}

// RecordGeneration records one language model call. kind is "draft",
// "shrink" or "expand".
func RecordGeneration(kind string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	GenerationCallsTotal.WithLabelValues(kind, result).Inc()
	GenerationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordAttempt records a finished attempt: "accepted", "rejected" or "failed".
func RecordAttempt(outcome string) {
	AttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordRow records a finished row by status.
func RecordRow(status string) {
	RowsTotal.WithLabelValues(status).Inc()
}

// Handler returns the prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "port", port, "error", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
