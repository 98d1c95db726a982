package domain

import (
	"time"

	"github.com/google/uuid"
)

// Типы событий timeline.
const (
	TimelineOrderCreated         = "order_created"
	TimelineOrderStatusChanged   = "order_status_changed"
	TimelinePaymentStatusChanged = "payment_status_changed"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderUUID uuid.UUID
	Type      string
	Reason    string
	Occurred  time.Time
}
