package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReplyTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_reply_transitions_total",
		Help: "Reply status transitions by target status.",
	}, []string{"status"})

	AutoReplyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auto_reply_decisions_total",
		Help: "Auto-reply policy decisions by outcome.",
	}, []string{"outcome"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auto_reply_sweep_duration_seconds",
		Help:    "Duration of auto-reply sweeps.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_token_refreshes_total",
		Help: "Access token refresh attempts by platform and result.",
	}, []string{"platform", "result"})

	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_sync_runs_total",
		Help: "Per-connection review sync runs by platform and status.",
	}, []string{"platform", "status"})

	ReviewsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviews_ingested_total",
		Help: "Reviews ingested from platforms.",
	}, []string{"platform", "result"})

	PlatformCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "platform_call_duration_seconds",
		Help: "Duration of review platform API calls.",
	}, []string{"platform", "operation"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_jobs_processed_total",
		Help: "Queue jobs handled by the worker by type and result.",
	}, []string{"type", "result"})

	QueueReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "queue_reconnect_attempts_total",
		Help: "Failed RabbitMQ connection attempts.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests.",
	}, []string{"path"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "code"})
)

func RecordPlatformCall(platform, operation string, f func() error) error {
	start := time.Now()
	err := f()
	PlatformCallDuration.WithLabelValues(platform, operation).Observe(time.Since(start).Seconds())
	return err
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordTokenRefresh(platform string, err error) {
	TokenRefreshes.WithLabelValues(platform, resultLabel(err)).Inc()
}

func RecordIngest(platform string, err error) {
	ReviewsIngested.WithLabelValues(platform, resultLabel(err)).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// PrometheusMiddleware labels requests by route template so that path
// parameters do not explode label cardinality.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
