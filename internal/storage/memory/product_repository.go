package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// productRepositoryInMemory хранит каталог в памяти.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	gate  *sync.Mutex
	seq   int64
	items map[uuid.UUID]domain.Product
}

// NewProductRepository возвращает in-memory каталог.
func NewProductRepository() domain.ProductRepository {
	return newProductRepository()
}

func newProductRepository() *productRepositoryInMemory {
	return &productRepositoryInMemory{items: make(map[uuid.UUID]domain.Product)}
}

func (r *productRepositoryInMemory) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	defer enterWrite(ctx, r.gate)()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.UUID]; exists || r.nameTakenLocked(product.Name, uuid.Nil) {
		return domain.Product{}, domain.ErrProductExists
	}
	r.seq++
	product.ID = r.seq
	r.items[product.UUID] = cloneProduct(product)
	return cloneProduct(product), nil
}

func (r *productRepositoryInMemory) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	defer enterWrite(ctx, r.gate)()
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[product.UUID]
	if !ok {
		return domain.Product{}, domain.ProductNotFound(product.UUID)
	}
	if r.nameTakenLocked(product.Name, product.UUID) {
		return domain.Product{}, domain.ErrProductExists
	}
	product.ID = current.ID
	product.CreatedAt = current.CreatedAt
	r.items[product.UUID] = cloneProduct(product)
	return cloneProduct(product), nil
}

func (r *productRepositoryInMemory) Delete(ctx context.Context, id uuid.UUID) error {
	defer enterWrite(ctx, r.gate)()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ProductNotFound(id)
	}
	delete(r.items, id)
	return nil
}

func (r *productRepositoryInMemory) List(_ context.Context) ([]domain.Product, error) {
	return r.filter(func(domain.Product) bool { return true }), nil
}

func (r *productRepositoryInMemory) ListByCategory(_ context.Context, category domain.Category) ([]domain.Product, error) {
	return r.filter(func(p domain.Product) bool { return p.Category == category }), nil
}

func (r *productRepositoryInMemory) GetByName(_ context.Context, name string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.items {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return cloneProduct(p), nil
		}
	}
	return domain.Product{}, &domain.NotFoundError{
		Resource: "product",
		Message:  "Product not found.",
		Params:   map[string]string{"name": name},
	}
}

func (r *productRepositoryInMemory) GetByUUIDs(_ context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	return r.filter(func(p domain.Product) bool {
		_, ok := wanted[p.UUID]
		return ok
	}), nil
}

func (r *productRepositoryInMemory) GetByUUID(_ context.Context, id uuid.UUID) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ProductNotFound(id)
	}
	return cloneProduct(p), nil
}

// filter возвращает копии товаров в порядке добавления.
func (r *productRepositoryInMemory) filter(keep func(domain.Product) bool) []domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, p := range r.items {
		if keep(p) {
			result = append(result, cloneProduct(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (r *productRepositoryInMemory) nameTakenLocked(name string, except uuid.UUID) bool {
	for id, p := range r.items {
		if id != except && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (r *productRepositoryInMemory) snapshot() func() {
	r.mu.RLock()
	seq := r.seq
	items := make(map[uuid.UUID]domain.Product, len(r.items))
	for k, v := range r.items {
		items[k] = cloneProduct(v)
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seq = seq
		r.items = items
	}
}

func cloneProduct(p domain.Product) domain.Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
