package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// orderRepositoryInMemory реализует OrderRepository в памяти.
type orderRepositoryInMemory struct {
	mu      sync.RWMutex
	gate    *sync.Mutex
	seq     int64
	itemSeq int64
	items   map[uuid.UUID]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return newOrderRepository()
}

func newOrderRepository() *orderRepositoryInMemory {
	return &orderRepositoryInMemory{items: make(map[uuid.UUID]domain.Order)}
}

// Create сохраняет новый заказ и назначает ID заказу и позициям.
func (r *orderRepositoryInMemory) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	defer enterWrite(ctx, r.gate)()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.UUID]; exists {
		return domain.Order{}, &domain.ConflictError{Message: "Order already exists"}
	}

	order = cloneOrder(order)
	r.seq++
	order.ID = r.seq
	for i := range order.Items {
		r.itemSeq++
		order.Items[i].ID = r.itemSeq
	}
	r.items[order.UUID] = order
	return cloneOrder(order), nil
}

func (r *orderRepositoryInMemory) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	defer enterWrite(ctx, r.gate)()
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.OrderNotFound(id)
	}
	order.Status = status
	order.UpdatedAt = updatedAt
	r.items[id] = order
	return cloneOrder(order), nil
}

func (r *orderRepositoryInMemory) GetByUUID(_ context.Context, id uuid.UUID) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.OrderNotFound(id)
	}
	return cloneOrder(order), nil
}

func (r *orderRepositoryInMemory) ListAll(_ context.Context) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		result = append(result, cloneOrder(order))
	}
	sort.Slice(result, func(i, j int) bool { return createdBefore(result[i], result[j]) })
	return result, nil
}

// ListByStatuses фильтрует по статусам и упорядочивает по их позиции в списке.
func (r *orderRepositoryInMemory) ListByStatuses(_ context.Context, statuses []domain.OrderStatus) ([]domain.Order, error) {
	rank := make(map[domain.OrderStatus]int, len(statuses))
	for i, s := range statuses {
		if _, dup := rank[s]; !dup {
			rank[s] = i
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range r.items {
		if _, ok := rank[order.Status]; ok {
			result = append(result, cloneOrder(order))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		ri, rj := rank[result[i].Status], rank[result[j].Status]
		if ri != rj {
			return ri < rj
		}
		return createdBefore(result[i], result[j])
	})
	return result, nil
}

func (r *orderRepositoryInMemory) snapshot() func() {
	r.mu.RLock()
	seq, itemSeq := r.seq, r.itemSeq
	items := make(map[uuid.UUID]domain.Order, len(r.items))
	for k, v := range r.items {
		items[k] = cloneOrder(v)
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seq, r.itemSeq = seq, itemSeq
		r.items = items
	}
}

func createdBefore(a, b domain.Order) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// cloneOrder копирует позиции, чтобы избежать мутаций хранилища извне.
func cloneOrder(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.Product = cloneProduct(item.Product)
		items[i] = item
	}
	o.Items = items
	return o
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
