package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultAccepted  = "accepted"
	ResultDuplicate = "duplicate"

	ResultOK         = "ok"
	ResultIncomplete = "incomplete"
	ResultFailed     = "failed"
)

// UploadMetrics holds the collectors for the upload lifecycle.
type UploadMetrics struct {
	SessionsStarted prometheus.Counter
	Chunks          *prometheus.CounterVec
	Completions     *prometheus.CounterVec
	AssemblySeconds prometheus.Histogram
	Bytes           prometheus.Counter
	SessionsSwept   prometheus.Counter
}

// NewUploadMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	m := &UploadMetrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recordings_upload_sessions_started_total",
			Help: "Total number of chunked upload sessions started",
		}),
		Chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recordings_upload_chunks_total",
			Help: "Total number of chunks received by result",
		}, []string{"result"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recordings_upload_completions_total",
			Help: "Total number of completion attempts by result",
		}, []string{"result"}),
		AssemblySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recordings_upload_assembly_seconds",
			Help:    "Time taken to assemble uploaded chunks into the final artifact",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recordings_upload_bytes_total",
			Help: "Total number of chunk and single-shot bytes written",
		}),
		SessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recordings_upload_sessions_swept_total",
			Help: "Total number of expired sessions reclaimed by the sweeper",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SessionsStarted,
			m.Chunks,
			m.Completions,
			m.AssemblySeconds,
			m.Bytes,
			m.SessionsSwept,
		)
	}
	return m
}

// Server exposes /metrics over HTTP.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
