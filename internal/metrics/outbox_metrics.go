package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics описывает доставку событий из transactional outbox.
type OutboxMetrics struct {
	attempts      *prometheus.CounterVec
	pending       prometheus.Gauge
	oldestPending prometheus.Gauge
}

func NewOutboxMetrics(registerer prometheus.Registerer) *OutboxMetrics {
	registerer = defaultRegisterer(registerer)

	return &OutboxMetrics{
		attempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fastfood_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by result.",
		}, []string{"result"}),
		pending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "fastfood_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox.",
		}),
		oldestPending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "fastfood_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		}),
	}
}

// Attempt учитывает попытку публикации: sent, retry_error, failed, dlq_failed.
func (m *OutboxMetrics) Attempt(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}

// Backlog обновляет размер очереди и возраст самой старой записи.
func (m *OutboxMetrics) Backlog(pending int, oldest time.Time) {
	if m == nil {
		return
	}
	m.pending.Set(float64(pending))
	if pending == 0 || oldest.IsZero() {
		m.oldestPending.Set(0)
		return
	}
	m.oldestPending.Set(max(time.Since(oldest).Seconds(), 0))
}
