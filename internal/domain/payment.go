package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment описывает платёж, созданный при оформлении заказа.
type Payment struct {
	ID        int64
	UUID      uuid.UUID
	OrderUUID uuid.UUID
	Status    PaymentStatus
	// Details — непрозрачные данные шлюза.
	Details   map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPayment создаёт платёж в статусе pending для заказа.
func NewPayment(order Order, details map[string]string) (Payment, error) {
	now := time.Now().UTC()
	payment := Payment{
		UUID:      uuid.New(),
		OrderUUID: order.UUID,
		Status:    PaymentStatusPending,
		Details:   copyDetails(details),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := firstError(payment.Validate()); err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// TransitionTo меняет статус платежа по таблице переходов.
func (p *Payment) TransitionTo(target PaymentStatus) error {
	if !p.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{Entity: "payment", From: string(p.Status), To: string(target)}
	}
	p.Status = target
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	return collect(
		assertNotNilUUID(p.UUID, "Payment uuid is required."),
		assertNotNilUUID(p.OrderUUID, "Payment order is required."),
		assertTrue(p.Status.IsValid(), "Payment status is invalid."),
		assertTrue(len(p.Details) > 0, "Payment details are required."),
	)
}

func copyDetails(details map[string]string) map[string]string {
	if details == nil {
		return nil
	}
	out := make(map[string]string, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}
