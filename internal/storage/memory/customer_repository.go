package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// customerRepositoryInMemory реализует CustomerRepository в памяти.
type customerRepositoryInMemory struct {
	mu    sync.RWMutex
	gate  *sync.Mutex
	seq   int64
	items map[uuid.UUID]domain.Customer
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository() domain.CustomerRepository {
	return newCustomerRepository()
}

func newCustomerRepository() *customerRepositoryInMemory {
	return &customerRepositoryInMemory{items: make(map[uuid.UUID]domain.Customer)}
}

func (r *customerRepositoryInMemory) Exists(_ context.Context, cpf domain.CPF, email domain.Email) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.items {
		if c.CPF == cpf || c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *customerRepositoryInMemory) GetByCPF(_ context.Context, cpf domain.CPF) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.items {
		if c.CPF == cpf {
			return c, nil
		}
	}
	return domain.Customer{}, domain.CustomerNotFound("cpf", cpf.String())
}

func (r *customerRepositoryInMemory) GetByUUID(_ context.Context, id uuid.UUID) (domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[id]
	if !ok {
		return domain.Customer{}, domain.CustomerNotFound("uuid", id.String())
	}
	return c, nil
}

// Add повторяет поведение уникальных индексов по cpf и email.
func (r *customerRepositoryInMemory) Add(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	defer enterWrite(ctx, r.gate)()
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.items {
		if c.CPF == customer.CPF || c.Email == customer.Email || c.UUID == customer.UUID {
			return domain.Customer{}, domain.ErrCustomerExists
		}
	}
	r.seq++
	customer.ID = r.seq
	r.items[customer.UUID] = customer
	return customer, nil
}

func (r *customerRepositoryInMemory) snapshot() func() {
	r.mu.RLock()
	seq := r.seq
	items := make(map[uuid.UUID]domain.Customer, len(r.items))
	for k, v := range r.items {
		items[k] = v
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seq = seq
		r.items = items
	}
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
