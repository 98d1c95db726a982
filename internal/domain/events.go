package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	AggregateOrder   = "order"
	AggregatePayment = "payment"

	EventOrderCreated         = "order.created"
	EventOrderStatusChanged   = "order.status_changed"
	EventPaymentStatusChanged = "payment.status_changed"
)

// OrderEvent — полезная нагрузка событий заказа в outbox.
type OrderEvent struct {
	OrderUUID      string    `json:"order_uuid"`
	CustomerUUID   string    `json:"customer_uuid"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	TotalMinor     int64     `json:"total_minor"`
	ItemsCount     int       `json:"items_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PaymentEvent — полезная нагрузка событий платежа в outbox.
type PaymentEvent struct {
	PaymentUUID    string    `json:"payment_uuid"`
	OrderUUID      string    `json:"order_uuid"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewOrderMessage строит outbox-сообщение о заказе. previous пуст для order.created.
func NewOrderMessage(eventType string, order Order, previous OrderStatus) (OutboxMessage, error) {
	payload, err := json.Marshal(OrderEvent{
		OrderUUID:      order.UUID.String(),
		CustomerUUID:   order.Customer.UUID.String(),
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		TotalMinor:     order.TotalMinor,
		ItemsCount:     len(order.Items),
		OccurredAt:     order.UpdatedAt,
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order event: %w", err)
	}
	return OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   order.UUID.String(),
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

// NewPaymentMessage строит outbox-сообщение о смене статуса платежа.
func NewPaymentMessage(payment Payment, previous PaymentStatus) (OutboxMessage, error) {
	payload, err := json.Marshal(PaymentEvent{
		PaymentUUID:    payment.UUID.String(),
		OrderUUID:      payment.OrderUUID.String(),
		Status:         string(payment.Status),
		PreviousStatus: string(previous),
		OccurredAt:     payment.UpdatedAt,
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal payment event: %w", err)
	}
	return OutboxMessage{
		AggregateType: AggregatePayment,
		// Платёжные события партиционируются по заказу.
		AggregateID: payment.OrderUUID.String(),
		EventType:   EventPaymentStatusChanged,
		Payload:     payload,
	}, nil
}
