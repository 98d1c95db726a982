package domain

import "strings"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPaymentPending: заказ оформлен, ждёт подтверждения оплаты.
	OrderStatusPaymentPending OrderStatus = "payment_pending"
	// OrderStatusReceived: оплата подтверждена, заказ в очереди кухни.
	OrderStatusReceived OrderStatus = "received"
	// OrderStatusProcessing: заказ готовится.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusReady: заказ готов к выдаче.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusCompleted: заказ выдан клиенту. Конечный статус.
	OrderStatusCompleted OrderStatus = "completed"
)

// PaymentStatus описывает состояние платежа.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusApproved   PaymentStatus = "approved"
	PaymentStatusRejected   PaymentStatus = "rejected"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// Таблицы переходов не зависят от строкового представления статусов.
var (
	orderTransitions = map[OrderStatus][]OrderStatus{
		OrderStatusPaymentPending: {OrderStatusReceived},
		OrderStatusReceived:       {OrderStatusProcessing},
		OrderStatusProcessing:     {OrderStatusReady},
		OrderStatusReady:          {OrderStatusCompleted},
		OrderStatusCompleted:      nil,
	}

	paymentTransitions = map[PaymentStatus][]PaymentStatus{
		PaymentStatusPending:    {PaymentStatusProcessing},
		PaymentStatusProcessing: {PaymentStatusApproved, PaymentStatusRejected, PaymentStatusFailed},
		PaymentStatusApproved:   nil,
		PaymentStatusRejected:   nil,
		// Повторная попытка после сбоя.
		PaymentStatusFailed: {PaymentStatusProcessing},
	}
)

// ParseOrderStatus проверяет, что строка является известным статусом заказа.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", invalidEnumValue(raw)
	}
	return status, nil
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) AllowedTransitions() []OrderStatus {
	allowed := orderTransitions[s]
	out := make([]OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(orderTransitions[s]) == 0
}

func (s OrderStatus) String() string { return string(s) }

// ParsePaymentStatus проверяет, что строка является известным статусом платежа.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", invalidEnumValue(raw)
	}
	return status, nil
}

func (s PaymentStatus) IsValid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) AllowedTransitions() []PaymentStatus {
	allowed := paymentTransitions[s]
	out := make([]PaymentStatus, len(allowed))
	copy(out, allowed)
	return out
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return s.IsValid() && len(paymentTransitions[s]) == 0
}

func (s PaymentStatus) String() string { return string(s) }

// IsWebhookResult сообщает, может ли статус прийти от платёжного шлюза в webhook.
func (s PaymentStatus) IsWebhookResult() bool {
	switch s {
	case PaymentStatusApproved, PaymentStatusRejected, PaymentStatusFailed:
		return true
	default:
		return false
	}
}
