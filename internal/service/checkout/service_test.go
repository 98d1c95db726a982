package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/metrics"
	"github.com/vladislavdragonenkov/fastfood/internal/service/journal"
	"github.com/vladislavdragonenkov/fastfood/internal/service/payment"
	"github.com/vladislavdragonenkov/fastfood/internal/storage/memory"
)

type fixture struct {
	store    *memory.Store
	gateway  *payment.MockGateway
	svc      *Service
	customer domain.Customer
	burger   domain.Product
	soda     domain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	customer, err := domain.NewCustomer("Ana", domain.MustCPF("52998224725"), domain.MustEmail("ana@example.com"))
	require.NoError(t, err)
	customer, err = store.Customers().Add(ctx, customer)
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		gateway:  payment.NewMockGateway(),
		customer: customer,
		burger:   addProduct(t, store, "X-Burger", domain.CategoryLanche, 2590),
		soda:     addProduct(t, store, "Soda", domain.CategoryBebida, 700),
	}
	f.svc = f.service(store.Payments())
	return f
}

func (f *fixture) service(payments domain.PaymentRepository) *Service {
	return NewService(Dependencies{
		Customers: f.store.Customers(),
		Products:  f.store.Products(),
		Orders:    f.store.Orders(),
		Payments:  payments,
		UoW:       f.store.UnitOfWork(),
		Gateway:   f.gateway,
		Journal:   journal.NewRecorder(f.store.Outbox(), f.store.Timeline(), nil),
	})
}

func addProduct(t *testing.T, store *memory.Store, name string, category domain.Category, price int64) domain.Product {
	t.Helper()
	product, err := domain.NewProduct(domain.ProductAttributes{
		Name:        name,
		Category:    category,
		PriceMinor:  price,
		Description: name,
		Images:      []string{name + ".png"},
	})
	require.NoError(t, err)
	product, err = store.Products().Create(context.Background(), product)
	require.NoError(t, err)
	return product
}

func (f *fixture) assertNothingWritten(t *testing.T) {
	t.Helper()
	orders, err := f.store.Orders().ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, orders)
	require.Empty(t, f.store.Outbox().AllPending())
}

func TestCheckout_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Checkout(ctx, Input{
		CustomerUUID: f.customer.UUID,
		Items: []ItemInput{
			{ProductUUID: f.burger.UUID, Quantity: 2},
			{ProductUUID: f.soda.UUID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	order := result.Order
	require.NotZero(t, order.ID)
	require.Equal(t, domain.OrderStatusPaymentPending, order.Status)
	require.Equal(t, int64(2*2590+700), order.TotalMinor)
	require.Len(t, order.Items, 2)
	require.Equal(t, f.customer.UUID, order.Customer.UUID)

	require.Equal(t, domain.PaymentStatusPending, result.Payment.Status)
	require.Equal(t, order.UUID, result.Payment.OrderUUID)
	require.Equal(t, 1, f.gateway.Calls())

	stored, err := f.store.Payments().GetByOrderUUID(ctx, order.UUID)
	require.NoError(t, err)
	require.Equal(t, result.Payment.UUID, stored.UUID)

	pending := f.store.Outbox().AllPending()
	require.Len(t, pending, 1)
	require.Equal(t, domain.EventOrderCreated, pending[0].EventType)
	require.Equal(t, order.UUID.String(), pending[0].AggregateID)

	events, err := f.store.Timeline().List(ctx, order.UUID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.TimelineOrderCreated, events[0].Type)
}

func TestCheckout_PriceIsCapturedAtCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.Checkout(ctx, Input{
		CustomerUUID: f.customer.UUID,
		Items:        []ItemInput{{ProductUUID: f.burger.UUID, Quantity: 1}},
	})
	require.NoError(t, err)

	repriced := f.burger
	require.NoError(t, repriced.Update(domain.ProductAttributes{
		Name:        repriced.Name,
		Category:    repriced.Category,
		PriceMinor:  9990,
		Description: repriced.Description,
		Images:      repriced.Images,
	}))
	_, err = f.store.Products().Update(ctx, repriced)
	require.NoError(t, err)

	order, err := f.store.Orders().GetByUUID(ctx, result.Order.UUID)
	require.NoError(t, err)
	require.Equal(t, int64(2590), order.Items[0].UnitPriceMinor)
	require.Equal(t, int64(2590), order.TotalMinor)
}

func TestCheckout_DuplicateLinesStaySeparate(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Checkout(context.Background(), Input{
		CustomerUUID: f.customer.UUID,
		Items: []ItemInput{
			{ProductUUID: f.soda.UUID, Quantity: 1},
			{ProductUUID: f.soda.UUID, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Order.Items, 2)
	require.Equal(t, int64(4*700), result.Order.TotalMinor)
}

func TestCheckout_EmptyOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), Input{CustomerUUID: f.customer.UUID})
	require.ErrorIs(t, err, domain.ErrEmptyOrder)
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Zero(t, f.gateway.Calls())
	f.assertNothingWritten(t)
}

func TestCheckout_UnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), Input{
		CustomerUUID: uuid.New(),
		Items:        []ItemInput{{ProductUUID: f.burger.UUID, Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	f.assertNothingWritten(t)
}

func TestCheckout_MissingProductsAreAllReported(t *testing.T) {
	f := newFixture(t)
	first, second := uuid.New(), uuid.New()

	_, err := f.svc.Checkout(context.Background(), Input{
		CustomerUUID: f.customer.UUID,
		Items: []ItemInput{
			{ProductUUID: first, Quantity: 1},
			{ProductUUID: f.burger.UUID, Quantity: 1},
			{ProductUUID: second, Quantity: 1},
		},
	})
	require.ErrorIs(t, err, domain.ErrMissingProducts)

	var missing *domain.MissingProductsError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, []uuid.UUID{first, second}, missing.IDs)
	require.Contains(t, err.Error(), first.String())
	require.Contains(t, err.Error(), second.String())
	f.assertNothingWritten(t)
}

func TestCheckout_InvalidQuantity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), Input{
		CustomerUUID: f.customer.UUID,
		Items:        []ItemInput{{ProductUUID: f.burger.UUID, Quantity: 0}},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	f.assertNothingWritten(t)
}

func TestCheckout_GatewayFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.gateway.Err = errors.New("provider unavailable")

	_, err := f.svc.Checkout(context.Background(), Input{
		CustomerUUID: f.customer.UUID,
		Items:        []ItemInput{{ProductUUID: f.burger.UUID, Quantity: 1}},
	})
	require.ErrorContains(t, err, "provider unavailable")
	require.False(t, domain.IsClientError(err))
	f.assertNothingWritten(t)
}

type failingPayments struct {
	domain.PaymentRepository
}

func (failingPayments) Add(context.Context, domain.Payment) (domain.Payment, error) {
	return domain.Payment{}, errors.New("disk full")
}

func TestCheckout_RollsBackWhenPaymentCannotBeStored(t *testing.T) {
	f := newFixture(t)
	svc := f.service(failingPayments{PaymentRepository: f.store.Payments()})

	_, err := svc.Checkout(context.Background(), Input{
		CustomerUUID: f.customer.UUID,
		Items:        []ItemInput{{ProductUUID: f.burger.UUID, Quantity: 1}},
	})
	require.ErrorContains(t, err, "disk full")
	f.assertNothingWritten(t)

	events, err := f.store.Timeline().List(context.Background(), uuid.Nil)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestCheckout_RecordsMetrics(t *testing.T) {
	f := newFixture(t)
	reg := prometheus.NewRegistry()
	m := metrics.NewOrderMetrics(reg)
	svc := NewService(Dependencies{
		Customers: f.store.Customers(),
		Products:  f.store.Products(),
		Orders:    f.store.Orders(),
		Payments:  f.store.Payments(),
		UoW:       f.store.UnitOfWork(),
		Gateway:   f.gateway,
		Journal:   journal.NewRecorder(f.store.Outbox(), f.store.Timeline(), m),
		Metrics:   m,
	})

	_, err := svc.Checkout(context.Background(), Input{
		CustomerUUID: f.customer.UUID,
		Items:        []ItemInput{{ProductUUID: f.burger.UUID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), Input{CustomerUUID: f.customer.UUID})
	require.Error(t, err)

	expected := `
# HELP fastfood_checkout_started_total Total number of checkouts started
# TYPE fastfood_checkout_started_total counter
fastfood_checkout_started_total 2
# HELP fastfood_checkout_succeeded_total Total number of checkouts persisted successfully
# TYPE fastfood_checkout_succeeded_total counter
fastfood_checkout_succeeded_total 1
# HELP fastfood_checkout_failed_total Total number of failed checkouts by reason
# TYPE fastfood_checkout_failed_total counter
fastfood_checkout_failed_total{reason="validation"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"fastfood_checkout_started_total",
		"fastfood_checkout_succeeded_total",
		"fastfood_checkout_failed_total",
	))
}
