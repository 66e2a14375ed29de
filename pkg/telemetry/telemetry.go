// Package telemetry provides low-overhead request instrumentation: RED
// metrics exported via prometheus plus a lightweight log line for slow
// requests.
package telemetry

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"refersync/pkg/logger"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refersync_http_requests_total",
		Help: "HTTP requests by method and status class.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refersync_http_request_duration_seconds",
		Help:    "HTTP request latency by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	inflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refersync_http_inflight_requests",
		Help: "HTTP requests currently being served.",
	})
)

var slowThresholdNs int64 = int64(200 * time.Millisecond)

// SetSlowThreshold sets the duration above which a request gets a warn
// log. Zero or negative disables slow logging.
func SetSlowThreshold(d time.Duration) {
	atomic.StoreInt64(&slowThresholdNs, int64(d))
}

// Middleware records request count, latency and in-flight gauge, and
// warns on slow requests. Paths are not used as label values; route
// cardinality would leak user IDs into the metric space.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inflight.Inc()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)
		inflight.Dec()

		dur := time.Since(start)
		requestsTotal.WithLabelValues(r.Method, statusClass(srw.status)).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(dur.Seconds())

		if thr := atomic.LoadInt64(&slowThresholdNs); thr > 0 && dur > time.Duration(thr) {
			logger.Warn("slow_request", "method", r.Method, "path", r.URL.Path, "duration_ms", dur.Milliseconds(), "status", srw.status)
		}
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
