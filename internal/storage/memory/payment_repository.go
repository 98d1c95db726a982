package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

type paymentRepositoryInMemory struct {
	mu      sync.RWMutex
	gate    *sync.Mutex
	seq     int64
	items   map[uuid.UUID]domain.Payment
	byOrder map[uuid.UUID]uuid.UUID
}

// NewPaymentRepository возвращает in-memory репозиторий платежей.
func NewPaymentRepository() domain.PaymentRepository {
	return newPaymentRepository()
}

func newPaymentRepository() *paymentRepositoryInMemory {
	return &paymentRepositoryInMemory{
		items:   make(map[uuid.UUID]domain.Payment),
		byOrder: make(map[uuid.UUID]uuid.UUID),
	}
}

// Add сохраняет платёж; на заказ допускается один платёж.
func (r *paymentRepositoryInMemory) Add(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	defer enterWrite(ctx, r.gate)()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOrder[payment.OrderUUID]; exists {
		return domain.Payment{}, &domain.ConflictError{Message: "Payment already exists"}
	}
	r.seq++
	payment.ID = r.seq
	payment.Details = cloneDetails(payment.Details)
	r.items[payment.UUID] = payment
	r.byOrder[payment.OrderUUID] = payment.UUID
	return payment, nil
}

func (r *paymentRepositoryInMemory) GetByUUID(_ context.Context, id uuid.UUID) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return domain.Payment{}, domain.PaymentNotFound("uuid", id.String())
	}
	p.Details = cloneDetails(p.Details)
	return p, nil
}

func (r *paymentRepositoryInMemory) GetByOrderUUID(_ context.Context, orderID uuid.UUID) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return domain.Payment{}, domain.PaymentNotFound("order_uuid", orderID.String())
	}
	p := r.items[id]
	p.Details = cloneDetails(p.Details)
	return p, nil
}

func (r *paymentRepositoryInMemory) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, updatedAt time.Time) (domain.Payment, error) {
	defer enterWrite(ctx, r.gate)()
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return domain.Payment{}, domain.PaymentNotFound("uuid", id.String())
	}
	p.Status = status
	p.UpdatedAt = updatedAt
	r.items[id] = p
	p.Details = cloneDetails(p.Details)
	return p, nil
}

func (r *paymentRepositoryInMemory) snapshot() func() {
	r.mu.RLock()
	seq := r.seq
	items := make(map[uuid.UUID]domain.Payment, len(r.items))
	for k, v := range r.items {
		v.Details = cloneDetails(v.Details)
		items[k] = v
	}
	byOrder := make(map[uuid.UUID]uuid.UUID, len(r.byOrder))
	for k, v := range r.byOrder {
		byOrder[k] = v
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seq = seq
		r.items = items
		r.byOrder = byOrder
	}
}

func cloneDetails(details map[string]string) map[string]string {
	if details == nil {
		return nil
	}
	out := make(map[string]string, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)
