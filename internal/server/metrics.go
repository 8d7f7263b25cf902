package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "resumeai"

	// labelHandler partitions HTTP metrics by logical endpoint name rather
	// than raw URL path, which would embed session ids.
	labelHandler = "handler"
)

// serverMetrics holds the Prometheus collectors owned by the HTTP server.
// Registering against a caller-supplied registry keeps tests hermetic.
type serverMetrics struct {
	// chatRequestsTotal counts /api/chat requests by outcome: ok, timeout, error.
	chatRequestsTotal *prometheus.CounterVec
	// chatDurationSeconds is the wall-clock duration of /api/chat by outcome.
	chatDurationSeconds *prometheus.HistogramVec
	// chatInFlight is the number of questions currently being answered.
	chatInFlight prometheus.Gauge

	// uploadFilesTotal counts uploaded files by outcome: ok, failed, rejected.
	uploadFilesTotal *prometheus.CounterVec
	// chunksIndexedTotal counts chunks indexed through /api/upload.
	chunksIndexedTotal prometheus.Counter
	// resetsTotal counts session resets, partitioned by whether documents
	// were purged.
	resetsTotal *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of /api/chat requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /api/chat requests including the session queue.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		chatInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "chat",
			Name:      "in_flight",
			Help:      "Number of /api/chat requests currently being served.",
		}),

		uploadFilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "upload",
			Name:      "files_total",
			Help:      "Uploaded files, partitioned by outcome.",
		}, []string{"outcome"}),

		chunksIndexedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "upload",
			Name:      "chunks_indexed_total",
			Help:      "Chunks indexed from uploaded files.",
		}),

		resetsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "resets_total",
			Help:      "Session resets, partitioned by whether documents were purged.",
		}, []string{"purged"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument records request count and latency for the named handler.
func (s *Server) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}

// StageObserver records the duration of each question stage (retrieve,
// history, generate, persist). It satisfies chain.Observer.
type StageObserver struct {
	duration *prometheus.HistogramVec
}

// NewStageObserver registers the stage histogram against reg.
func NewStageObserver(reg prometheus.Registerer) *StageObserver {
	return &StageObserver{
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "chain",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each question answering stage, partitioned by stage and outcome.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage", "outcome"}),
	}
}

// ObserveStage implements chain.Observer.
func (o *StageObserver) ObserveStage(stage string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.duration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}
