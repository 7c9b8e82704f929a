// Package metrics holds the client's Prometheus instruments.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the request and recording instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Recordings      *prometheus.CounterVec
	RecordingBytes  prometheus.Histogram

	registry *prometheus.Registry
}

// New registers all instruments on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timescribe_requests_total",
			Help: "Requests sent to the server, by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timescribe_request_duration_seconds",
			Help:    "Round-trip time of server requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		Recordings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "timescribe_recordings_total",
			Help: "Finished recordings, by outcome",
		}, []string{"outcome"}),
		RecordingBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "timescribe_recording_bytes",
			Help:    "Size of uploaded recordings",
			Buckets: prometheus.ExponentialBuckets(4096, 4, 8),
		}),
		registry: registry,
	}
}

// ObserveRequest records one server round trip.
func (m *Metrics) ObserveRequest(endpoint string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(endpoint, outcome).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveRecording records how a recording ended.
func (m *Metrics) ObserveRecording(outcome string, bytes int) {
	if m == nil {
		return
	}
	m.Recordings.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		m.RecordingBytes.Observe(float64(bytes))
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics on a local address.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

func NewServer(addr string, m *Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", slog.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
