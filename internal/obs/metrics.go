package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AlexKimmel/askgate/internal/routing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RateLimited      *prometheus.CounterVec
	LimiterErrors    *prometheus.CounterVec
	UpstreamFailures *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "askgate_requests_total",
				Help: "Total HTTP requests processed by the gateway",
			},
			[]string{"route", "method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "askgate_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "askgate_rate_limited_total",
				Help: "Total requests rejected due to rate limiting",
			},
			[]string{"route"},
		),
		LimiterErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "askgate_limiter_errors_total",
				Help: "Total rate limiter errors",
			},
			[]string{"route"},
		),
		UpstreamFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "askgate_upstream_failures_total",
				Help: "Completion calls that did not yield a reply, by failure kind",
			},
			[]string{"route", "kind"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "askgate_upstream_duration_seconds",
				Help:    "Completion call duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal, m.RequestDuration,
		m.RateLimited, m.LimiterErrors,
		m.UpstreamFailures, m.UpstreamDuration,
	)
	return m
}

// Handler exposes g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRateLimited(routeID string) {
	m.RateLimited.WithLabelValues(routeID).Inc()
}

func (m *Metrics) ObserveLimiterError(routeID string) {
	m.LimiterErrors.WithLabelValues(routeID).Inc()
}

// ObserveUpstream records one completion call. An empty kind means success.
func (m *Metrics) ObserveUpstream(routeID, kind string, d time.Duration) {
	m.UpstreamDuration.WithLabelValues(routeID).Observe(d.Seconds())
	if kind != "" {
		m.UpstreamFailures.WithLabelValues(routeID, kind).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Middleware records per-request metrics under the route tagged by routing.Tag.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			route := "unknown"
			if rt, ok := routing.RouteFrom(r); ok && rt.ID != "" {
				route = rt.ID
			}

			code := rec.status
			if code == 0 {
				code = http.StatusOK
			}

			m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		})
	}
}
