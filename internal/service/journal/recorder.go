// Package journal записывает события жизненного цикла в outbox и timeline
// в рамках текущей единицы работы.
package journal

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/metrics"
)

// Recorder вызывается внутри UnitOfWork.Do, поэтому события фиксируются
// атомарно с изменением сущности.
type Recorder struct {
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	metrics  *metrics.OrderMetrics
}

// NewRecorder создаёт Recorder. metrics может быть nil.
func NewRecorder(outbox domain.OutboxRepository, timeline domain.TimelineRepository, m *metrics.OrderMetrics) *Recorder {
	return &Recorder{outbox: outbox, timeline: timeline, metrics: m}
}

// OrderCreated фиксирует создание заказа.
func (r *Recorder) OrderCreated(ctx context.Context, order domain.Order) error {
	msg, err := domain.NewOrderMessage(domain.EventOrderCreated, order, "")
	if err != nil {
		return err
	}
	return r.record(ctx, msg, domain.TimelineEvent{
		OrderUUID: order.UUID,
		Type:      domain.TimelineOrderCreated,
		Reason:    fmt.Sprintf("status=%s total_minor=%d", order.Status, order.TotalMinor),
		Occurred:  order.CreatedAt,
	})
}

// OrderStatusChanged фиксирует переход статуса заказа.
func (r *Recorder) OrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus, reason string) error {
	msg, err := domain.NewOrderMessage(domain.EventOrderStatusChanged, order, previous)
	if err != nil {
		return err
	}
	r.metrics.StatusTransition(domain.AggregateOrder, string(previous), string(order.Status))
	return r.record(ctx, msg, domain.TimelineEvent{
		OrderUUID: order.UUID,
		Type:      domain.TimelineOrderStatusChanged,
		Reason:    transitionReason(string(previous), string(order.Status), reason),
		Occurred:  order.UpdatedAt,
	})
}

// PaymentStatusChanged фиксирует переход статуса платежа в timeline его заказа.
func (r *Recorder) PaymentStatusChanged(ctx context.Context, payment domain.Payment, previous domain.PaymentStatus, reason string) error {
	msg, err := domain.NewPaymentMessage(payment, previous)
	if err != nil {
		return err
	}
	r.metrics.StatusTransition(domain.AggregatePayment, string(previous), string(payment.Status))
	return r.record(ctx, msg, domain.TimelineEvent{
		OrderUUID: payment.OrderUUID,
		Type:      domain.TimelinePaymentStatusChanged,
		Reason:    transitionReason(string(previous), string(payment.Status), reason),
		Occurred:  payment.UpdatedAt,
	})
}

func (r *Recorder) record(ctx context.Context, msg domain.OutboxMessage, event domain.TimelineEvent) error {
	if _, err := r.outbox.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s: %w", msg.EventType, err)
	}
	r.metrics.OutboxEnqueued(msg.EventType)

	if err := r.timeline.Append(ctx, event); err != nil {
		return fmt.Errorf("append timeline %s: %w", event.Type, err)
	}
	r.metrics.TimelineEvent()
	return nil
}

func transitionReason(from, to, reason string) string {
	if reason == "" {
		return from + " -> " + to
	}
	return from + " -> " + to + ": " + reason
}
