package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auger_api_requests_total",
			Help: "Total number of search API requests issued",
		},
		[]string{"status"},
	)

	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auger_request_duration_seconds",
			Help:    "Duration of search API requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	ProfilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auger_profiles_total",
			Help: "Total number of unique profiles harvested",
		},
	)

	DiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auger_discarded_results_total",
			Help: "Search results dropped by the noise heuristics",
		},
		[]string{"reason"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auger_proxy_failures_total",
			Help: "Total number of proxy failures during API requests",
		},
		[]string{"proxy_url"},
	)
)

// RecordRequest updates the request counter and latency histogram. status is
// the HTTP status code as a string, or "error" when no response arrived.
func RecordRequest(status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(status).Inc()
	RequestDuration.Observe(d.Seconds())
}

// RecordProfile counts one newly discovered profile.
func RecordProfile() {
	ProfilesTotal.Inc()
}

// RecordDiscard counts one result dropped by a noise heuristic.
func RecordDiscard(reason string) {
	DiscardedTotal.WithLabelValues(reason).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
