package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics — счётчик и гистограмма запросов HTTP API.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	limited  prometheus.Counter
}

// NewHTTPMetrics регистрирует метрики HTTP API.
func NewHTTPMetrics(registerer prometheus.Registerer) *HTTPMetrics {
	registerer = defaultRegisterer(registerer)

	return &HTTPMetrics{
		requests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fastfood_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "fastfood_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		limited: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fastfood_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
	}
}

// Observe записывает завершённый запрос. route содержит шаблон пути, а не сырой URL.
func (m *HTTPMetrics) Observe(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *HTTPMetrics) RateLimited() {
	if m == nil {
		return
	}
	m.limited.Inc()
}
