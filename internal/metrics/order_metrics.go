package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики оформления и жизненного цикла заказов.
// Методы безопасны для nil-получателя: сервисы в тестах работают без метрик.
type OrderMetrics struct {
	// Оформление заказа
	checkoutStarted   prometheus.Counter
	checkoutSucceeded prometheus.Counter
	checkoutFailed    *prometheus.CounterVec
	checkoutDuration  prometheus.Histogram
	checkoutsInFlight prometheus.Gauge

	// Переходы статусов
	transitions    *prometheus.CounterVec
	paymentResults *prometheus.CounterVec

	timelineEvents prometheus.Counter
	outboxEnqueued *prometheus.CounterVec
}

// NewOrderMetrics регистрирует метрики в registerer (nil = DefaultRegisterer).
func NewOrderMetrics(registerer prometheus.Registerer) *OrderMetrics {
	registerer = defaultRegisterer(registerer)

	return &OrderMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fastfood_checkout_started_total",
			Help: "Total number of checkouts started",
		}),
		checkoutSucceeded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fastfood_checkout_succeeded_total",
			Help: "Total number of checkouts persisted successfully",
		}),
		checkoutFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fastfood_checkout_failed_total",
			Help: "Total number of failed checkouts by reason",
		}, []string{"reason"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "fastfood_checkout_duration_seconds",
			Help:    "Duration of checkout in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		checkoutsInFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "fastfood_checkouts_in_flight",
			Help: "Number of checkouts currently being processed",
		}),
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fastfood_status_transitions_total",
			Help: "Total number of applied status transitions",
		}, []string{"entity", "from", "to"}),
		paymentResults: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fastfood_payment_results_total",
			Help: "Total number of payment webhook results by status",
		}, []string{"status"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "fastfood_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEnqueued: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "fastfood_outbox_enqueued_total",
			Help: "Total number of outbox messages enqueued by event type",
		}, []string{"event_type"}),
	}
}

// CheckoutStarted отмечает начало оформления и возвращает функцию завершения.
func (m *OrderMetrics) CheckoutStarted() (finish func()) {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.checkoutStarted.Inc()
	m.checkoutsInFlight.Inc()
	return func() {
		m.checkoutsInFlight.Dec()
		m.checkoutDuration.Observe(time.Since(start).Seconds())
	}
}

// CheckoutSucceeded увеличивает счётчик успешных оформлений.
func (m *OrderMetrics) CheckoutSucceeded() {
	if m == nil {
		return
	}
	m.checkoutSucceeded.Inc()
}

// CheckoutFailed увеличивает счётчик неудачных оформлений с причиной.
func (m *OrderMetrics) CheckoutFailed(reason string) {
	if m == nil {
		return
	}
	m.checkoutFailed.WithLabelValues(reason).Inc()
}

// StatusTransition фиксирует переход статуса заказа или платежа.
func (m *OrderMetrics) StatusTransition(entity, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(entity, from, to).Inc()
}

// PaymentResult фиксирует итог платежа, пришедший через webhook.
func (m *OrderMetrics) PaymentResult(status string) {
	if m == nil {
		return
	}
	m.paymentResults.WithLabelValues(status).Inc()
}

func (m *OrderMetrics) TimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

func (m *OrderMetrics) OutboxEnqueued(eventType string) {
	if m == nil {
		return
	}
	m.outboxEnqueued.WithLabelValues(eventType).Inc()
}
