package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// participant умеет сделать снимок своего состояния и вернуть функцию отката.
type participant interface {
	snapshot() (restore func())
}

// Store собирает in-memory репозитории, разделяющие одну границу транзакций.
type Store struct {
	customers *customerRepositoryInMemory
	products  *productRepositoryInMemory
	orders    *orderRepositoryInMemory
	payments  *paymentRepositoryInMemory
	outbox    *outboxRepositoryInMemory
	timeline  *timelineRepositoryInMemory
	uow       *unitOfWorkInMemory
}

// NewStore создаёт пустое хранилище для локальной разработки и тестов.
func NewStore() *Store {
	s := &Store{
		customers: newCustomerRepository(),
		products:  newProductRepository(),
		orders:    newOrderRepository(),
		payments:  newPaymentRepository(),
		outbox:    NewOutboxRepository(),
		timeline:  newTimelineRepository(),
	}
	s.uow = &unitOfWorkInMemory{
		participants: []participant{s.customers, s.products, s.orders, s.payments, s.outbox, s.timeline},
	}
	gate := &s.uow.mu
	s.customers.gate = gate
	s.products.gate = gate
	s.orders.gate = gate
	s.payments.gate = gate
	s.outbox.gate = gate
	s.timeline.gate = gate
	return s
}

func (s *Store) Customers() domain.CustomerRepository { return s.customers }
func (s *Store) Products() domain.ProductRepository   { return s.products }
func (s *Store) Orders() domain.OrderRepository       { return s.orders }
func (s *Store) Payments() domain.PaymentRepository   { return s.payments }
func (s *Store) Timeline() domain.TimelineRepository  { return s.timeline }
func (s *Store) UnitOfWork() domain.UnitOfWork        { return s.uow }

// Outbox возвращает конкретный тип: тестам нужен AllPending.
func (s *Store) Outbox() *outboxRepositoryInMemory { return s.outbox }

type txKey struct{}

// enterWrite захватывает gate для записи вне единицы работы и возвращает функцию освобождения.
// Такая запись дожидается завершения открытой единицы работы, и её откат не затрагивает запись.
// Внутри Do мьютекс уже удерживается, поэтому запись проходит без ожидания.
func enterWrite(ctx context.Context, gate *sync.Mutex) (leave func()) {
	if gate == nil || ctx.Value(txKey{}) != nil {
		return func() {}
	}
	gate.Lock()
	return gate.Unlock
}

// unitOfWorkInMemory сериализует единицы работы и откатывает снимки при ошибке.
// Одиночные записи репозиториев Store проходят через тот же мьютекс (см. enterWrite).
type unitOfWorkInMemory struct {
	mu           sync.Mutex
	participants []participant
}

func (u *unitOfWorkInMemory) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	// Вложенный вызов присоединяется к внешней единице работы.
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	restores := make([]func(), 0, len(u.participants))
	for _, p := range u.participants {
		restores = append(restores, p.snapshot())
	}
	rollback := func() {
		for _, restore := range restores {
			restore()
		}
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		rollback()
		return err
	}
	return nil
}

var _ domain.UnitOfWork = (*unitOfWorkInMemory)(nil)
