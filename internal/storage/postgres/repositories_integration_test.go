package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

func seedCustomer(t *testing.T, store *Store) domain.Customer {
	t.Helper()
	customer, err := domain.NewCustomer("Maria Silva", domain.MustCPF("52998224725"), domain.MustEmail("maria@example.com"))
	if err != nil {
		t.Fatalf("new customer: %v", err)
	}
	saved, err := NewCustomerRepository(store).Add(context.Background(), customer)
	if err != nil {
		t.Fatalf("add customer: %v", err)
	}
	return saved
}

func seedProduct(t *testing.T, store *Store, name string, price int64) domain.Product {
	t.Helper()
	product, err := domain.NewProduct(domain.ProductAttributes{
		Name:        name,
		Category:    domain.CategoryLanche,
		PriceMinor:  price,
		Description: "tasty " + name,
		Images:      []string{"https://img.example.com/" + name + ".png"},
	})
	if err != nil {
		t.Fatalf("new product: %v", err)
	}
	saved, err := NewProductRepository(store).Create(context.Background(), product)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return saved
}

func seedOrder(t *testing.T, store *Store, customer domain.Customer, products ...domain.Product) domain.Order {
	t.Helper()
	items := make([]domain.OrderItem, 0, len(products))
	for _, p := range products {
		item, err := domain.NewOrderItem(p, 2)
		if err != nil {
			t.Fatalf("new item: %v", err)
		}
		items = append(items, item)
	}
	order, err := domain.NewOrder(customer, items)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	saved, err := NewOrderRepository(store).Create(context.Background(), order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return saved
}

func TestCustomerRepository_PostgresFlow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	repo := NewCustomerRepository(store)

	customer := seedCustomer(t, store)
	if customer.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := repo.GetByCPF(ctx, customer.CPF)
	if err != nil {
		t.Fatalf("get by cpf: %v", err)
	}
	if got.UUID != customer.UUID || got.Email != customer.Email {
		t.Fatalf("unexpected customer: %+v", got)
	}

	exists, err := repo.Exists(ctx, domain.MustCPF("11144477735"), customer.Email)
	if err != nil || !exists {
		t.Fatalf("expected exists by email, got %v %v", exists, err)
	}

	dup, _ := domain.NewCustomer("Other", customer.CPF, domain.MustEmail("other@example.com"))
	if _, err := repo.Add(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := repo.GetByUUID(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProductRepository_PostgresFlow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	repo := NewProductRepository(store)

	burger := seedProduct(t, store, "Burger", 1500)
	if _, err := repo.Create(ctx, func() domain.Product {
		p := burger
		p.UUID = uuid.New()
		p.Name = "BURGER"
		return p
	}()); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected case-insensitive conflict, got %v", err)
	}

	got, err := repo.GetByUUID(ctx, burger.UUID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if len(got.Images) != 1 || got.Category != domain.CategoryLanche {
		t.Fatalf("unexpected product: %+v", got)
	}

	got.PriceMinor = 1800
	got.Images = append(got.Images, "extra.png")
	updated, err := repo.Update(ctx, got)
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.PriceMinor != 1800 || len(updated.Images) != 2 {
		t.Fatalf("unexpected updated product: %+v", updated)
	}

	byName, err := repo.GetByName(ctx, "burger")
	if err != nil || byName.UUID != burger.UUID {
		t.Fatalf("get by name: %v", err)
	}

	many, err := repo.GetByUUIDs(ctx, []uuid.UUID{burger.UUID, uuid.New()})
	if err != nil || len(many) != 1 {
		t.Fatalf("get by uuids: %d %v", len(many), err)
	}

	drinks, err := repo.ListByCategory(ctx, domain.CategoryBebida)
	if err != nil || len(drinks) != 0 {
		t.Fatalf("expected no drinks, got %d %v", len(drinks), err)
	}

	if err := repo.Delete(ctx, burger.UUID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, burger.UUID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestOrderRepository_PostgresFlow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	repo := NewOrderRepository(store)

	customer := seedCustomer(t, store)
	burger := seedProduct(t, store, "Burger", 1500)
	fries := seedProduct(t, store, "Fries", 700)

	first := seedOrder(t, store, customer, burger, fries)
	second := seedOrder(t, store, customer, fries)

	got, err := repo.GetByUUID(ctx, first.UUID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.TotalMinor != 4400 || len(got.Items) != 2 || got.Customer.CPF != customer.CPF {
		t.Fatalf("unexpected order: %+v", got)
	}

	updated, err := repo.UpdateStatus(ctx, second.UUID, domain.OrderStatusReceived, time.Now().UTC())
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != domain.OrderStatusReceived {
		t.Fatalf("unexpected status %s", updated.Status)
	}

	active, err := repo.ListByStatuses(ctx, []domain.OrderStatus{domain.OrderStatusReceived, domain.OrderStatusPaymentPending})
	if err != nil {
		t.Fatalf("list by statuses: %v", err)
	}
	if len(active) != 2 || active[0].UUID != second.UUID {
		t.Fatalf("unexpected order of active list: %+v", active)
	}

	// Снимок позиции переживает удаление товара из каталога.
	if err := NewProductRepository(store).Delete(ctx, fries.UUID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[1].Items[0].Product.Name != "Fries" {
		t.Fatalf("unexpected orders after product delete: %+v", all)
	}

	if _, err := repo.UpdateStatus(ctx, uuid.New(), domain.OrderStatusReady, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPaymentRepository_PostgresFlow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	repo := NewPaymentRepository(store)

	order := seedOrder(t, store, seedCustomer(t, store), seedProduct(t, store, "Burger", 1500))
	payment, err := domain.NewPayment(order, map[string]string{"provider": "mercadopago", "qr_code": "abc"})
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	if _, err := repo.Add(ctx, payment); err != nil {
		t.Fatalf("add payment: %v", err)
	}

	again, _ := domain.NewPayment(order, map[string]string{"provider": "mercadopago"})
	if _, err := repo.Add(ctx, again); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	byOrder, err := repo.GetByOrderUUID(ctx, order.UUID)
	if err != nil {
		t.Fatalf("get by order: %v", err)
	}
	if byOrder.UUID != payment.UUID || byOrder.Details["qr_code"] != "abc" {
		t.Fatalf("unexpected payment: %+v", byOrder)
	}

	updated, err := repo.UpdateStatus(ctx, payment.UUID, domain.PaymentStatusProcessing, time.Now().UTC())
	if err != nil || updated.Status != domain.PaymentStatusProcessing {
		t.Fatalf("update status: %+v %v", updated, err)
	}

	if _, err := repo.GetByUUID(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTimelineRepository_PostgresFlow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	repo := NewTimelineRepository(store)

	orderID := uuid.New()
	now := time.Now().UTC().Round(time.Microsecond)
	if err := repo.Append(ctx, domain.TimelineEvent{OrderUUID: orderID, Type: domain.TimelineOrderStatusChanged, Occurred: now.Add(time.Second)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, domain.TimelineEvent{OrderUUID: orderID, Type: domain.TimelineOrderCreated, Occurred: now}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := repo.List(ctx, orderID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].Type != domain.TimelineOrderCreated {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestUnitOfWork_PostgresRollback(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	customer := seedCustomer(t, store)
	burger := seedProduct(t, store, "Burger", 1500)

	item, _ := domain.NewOrderItem(burger, 1)
	order, err := domain.NewOrder(customer, []domain.OrderItem{item})
	if err != nil {
		t.Fatalf("new order: %v", err)
	}

	boom := errors.New("boom")
	err = store.UnitOfWork().Do(ctx, func(ctx context.Context) error {
		if _, err := NewOrderRepository(store).Create(ctx, order); err != nil {
			return err
		}
		if _, err := NewOutboxRepository(store).Enqueue(ctx, domain.OutboxMessage{
			AggregateType: domain.AggregateOrder,
			AggregateID:   order.UUID.String(),
			EventType:     domain.EventOrderCreated,
			Payload:       []byte(`{}`),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := NewOrderRepository(store).GetByUUID(ctx, order.UUID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("order must be rolled back, got %v", err)
	}
	stats, err := NewOutboxRepository(store).Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("outbox must be rolled back, got %d", stats.PendingCount)
	}
}
