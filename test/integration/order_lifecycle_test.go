package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/fastfood/internal/app"
	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/service/catalog"
	"github.com/vladislavdragonenkov/fastfood/internal/service/checkout"
	"github.com/vladislavdragonenkov/fastfood/internal/service/customer"
	"github.com/vladislavdragonenkov/fastfood/internal/service/journal"
	"github.com/vladislavdragonenkov/fastfood/internal/service/order"
	"github.com/vladislavdragonenkov/fastfood/internal/service/outbox"
	"github.com/vladislavdragonenkov/fastfood/internal/service/payment"
	"github.com/vladislavdragonenkov/fastfood/internal/storage/memory"
	"github.com/vladislavdragonenkov/fastfood/internal/transport/httpapi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// OrderLifecycleTestSuite проходит путь заказа через HTTP API собранного приложения.
type OrderLifecycleTestSuite struct {
	suite.Suite
	app    *app.App
	server *httptest.Server
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)

	cfg := config.Default()
	cfg.HTTP.RateLimit.Enabled = false
	reg := prometheus.NewRegistry()

	application, err := app.New(context.Background(), cfg, app.Options{
		Logger:     baseLogger.WithField("component", "integration-test"),
		Registerer: reg,
		Gatherer:   reg,
	})
	suite.Require().NoError(err)
	suite.app = application
	suite.server = httptest.NewServer(application.Handler())
}

func (suite *OrderLifecycleTestSuite) TearDownTest() {
	suite.server.Close()
	suite.app.Close()
}

func TestOrderLifecycleSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}

func (suite *OrderLifecycleTestSuite) call(method, path string, in, out any) int {
	var body bytes.Buffer
	if in != nil {
		suite.Require().NoError(json.NewEncoder(&body).Encode(in))
	}
	req, err := http.NewRequest(method, suite.server.URL+path, &body)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.server.Client().Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusBadRequest && resp.StatusCode != http.StatusNoContent {
		suite.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (suite *OrderLifecycleTestSuite) prepareOrder() (httpapi.OrderOut, httpapi.PaymentStatusOut) {
	var cust httpapi.CustomerOut
	status := suite.call(http.MethodPost, "/customer",
		httpapi.CustomerIn{Name: "Maria Silva", CPF: "52998224725", Email: "maria@example.com"}, &cust)
	suite.Require().Equal(http.StatusCreated, status)

	var burger, fries httpapi.ProductOut
	status = suite.call(http.MethodPost, "/products", httpapi.ProductIn{
		Name: "X-Salada", Category: "lanche", Price: 22.5, Description: "burger", Images: []string{"x.png"},
	}, &burger)
	suite.Require().Equal(http.StatusCreated, status)
	status = suite.call(http.MethodPost, "/products", httpapi.ProductIn{
		Name: "Batata", Category: "acompanhamento", Price: 9.9, Description: "fries", Images: []string{"b.png"},
	}, &fries)
	suite.Require().Equal(http.StatusCreated, status)

	var created httpapi.OrderOut
	status = suite.call(http.MethodPost, "/orders/checkout", httpapi.CheckoutIn{
		CustomerID: cust.UUID,
		Items: []httpapi.CheckoutItemIn{
			{ProductID: burger.UUID, Quantity: 2},
			{ProductID: fries.UUID, Quantity: 1},
		},
	}, &created)
	suite.Require().Equal(http.StatusCreated, status)

	var pay httpapi.PaymentStatusOut
	status = suite.call(http.MethodGet, "/payment/"+created.UUID+"/status", nil, &pay)
	suite.Require().Equal(http.StatusOK, status)
	return created, pay
}

func (suite *OrderLifecycleTestSuite) TestHappyPath() {
	created, pay := suite.prepareOrder()
	suite.Equal("payment_pending", created.Status)
	suite.InDelta(2*22.5+9.9, created.TotalValue, 0.0001)
	suite.Equal("pending", pay.Status)

	status := suite.call(http.MethodPost, "/payment/"+pay.UUID+"/result", httpapi.StatusIn{Status: "approved"}, &pay)
	suite.Require().Equal(http.StatusOK, status)
	suite.Equal("approved", pay.Status)

	path := "/orders/" + created.UUID + "/status"
	for _, next := range []string{"processing", "ready", "completed"} {
		var out httpapi.OrderOut
		suite.Require().Equal(http.StatusOK, suite.call(http.MethodPut, path, httpapi.StatusIn{Status: next}, &out))
		suite.Equal(next, out.Status)
	}

	var active []httpapi.OrderOut
	suite.Require().Equal(http.StatusOK, suite.call(http.MethodGet, "/orders/active", nil, &active))
	suite.Empty(active)

	var timeline []httpapi.TimelineEventOut
	suite.Require().Equal(http.StatusOK, suite.call(http.MethodGet, "/orders/"+created.UUID+"/timeline", nil, &timeline))
	suite.Len(timeline, 6)
}

func (suite *OrderLifecycleTestSuite) TestRejectedPaymentKeepsOrderPending() {
	created, pay := suite.prepareOrder()

	status := suite.call(http.MethodPost, "/payment/"+pay.UUID+"/result", httpapi.StatusIn{Status: "rejected"}, &pay)
	suite.Require().Equal(http.StatusOK, status)
	suite.Equal("rejected", pay.Status)

	var orders []httpapi.OrderOut
	suite.Require().Equal(http.StatusOK, suite.call(http.MethodGet, "/orders", nil, &orders))
	suite.Require().Len(orders, 1)
	suite.Equal(created.UUID, orders[0].UUID)
	suite.Equal("payment_pending", orders[0].Status)

	status = suite.call(http.MethodPost, "/payment/"+pay.UUID+"/result", httpapi.StatusIn{Status: "approved"}, nil)
	suite.Equal(http.StatusBadRequest, status)
}

func (suite *OrderLifecycleTestSuite) TestSkippingKitchenStepsIsRejected() {
	created, pay := suite.prepareOrder()
	suite.Require().Equal(http.StatusOK,
		suite.call(http.MethodPost, "/payment/"+pay.UUID+"/result", httpapi.StatusIn{Status: "approved"}, nil))

	status := suite.call(http.MethodPut, "/orders/"+created.UUID+"/status", httpapi.StatusIn{Status: "completed"}, nil)
	suite.Equal(http.StatusBadRequest, status)
}

func (suite *OrderLifecycleTestSuite) TestConcurrentCheckouts() {
	var cust httpapi.CustomerOut
	suite.Require().Equal(http.StatusCreated, suite.call(http.MethodPost, "/customer",
		httpapi.CustomerIn{Name: "Joao", CPF: "11144477735", Email: "joao@example.com"}, &cust))
	var soda httpapi.ProductOut
	suite.Require().Equal(http.StatusCreated, suite.call(http.MethodPost, "/products", httpapi.ProductIn{
		Name: "Guarana", Category: "bebida", Price: 6, Description: "can", Images: []string{"g.png"},
	}, &soda))

	const n = 20
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- suite.call(http.MethodPost, "/orders/checkout", httpapi.CheckoutIn{
				CustomerID: cust.UUID,
				Items:      []httpapi.CheckoutItemIn{{ProductID: soda.UUID, Quantity: 1}},
			}, nil)
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		suite.Equal(http.StatusCreated, code)
	}

	var orders []httpapi.OrderOut
	suite.Require().Equal(http.StatusOK, suite.call(http.MethodGet, "/orders", nil, &orders))
	suite.Len(orders, n)
}

// recordingPublisher запоминает доставленные события.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OutboxMessage
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func TestOutboxDeliversCheckoutAndPaymentEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	rec := journal.NewRecorder(store.Outbox(), store.Timeline(), nil)
	orders := order.NewService(store.Orders(), store.Timeline(), store.UnitOfWork(), rec, nil)
	payments := payment.NewService(store.Payments(), orders, store.UnitOfWork(), rec, nil, nil)
	checkoutSvc := checkout.NewService(checkout.Dependencies{
		Customers: store.Customers(),
		Products:  store.Products(),
		Orders:    store.Orders(),
		Payments:  store.Payments(),
		UoW:       store.UnitOfWork(),
		Gateway:   payment.NewMockGateway(),
		Journal:   rec,
	})

	cust, err := customer.NewService(store.Customers(), nil).Create(ctx, customer.CreateInput{
		Name: "Maria Silva", CPF: "52998224725", Email: "maria@example.com",
	})
	require.NoError(t, err)
	product, err := catalog.NewService(store.Products(), nil).Create(ctx, catalog.ProductInput{
		Name: "X-Salada", Category: "lanche", PriceMinor: 2250, Description: "burger", Images: []string{"x.png"},
	})
	require.NoError(t, err)

	result, err := checkoutSvc.Checkout(ctx, checkout.Input{
		CustomerUUID: cust.UUID,
		Items:        []checkout.ItemInput{{ProductUUID: product.UUID, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = payments.Confirm(ctx, result.Payment.UUID, "approved")
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	worker := outbox.NewWorker(store.Outbox(), publisher)
	require.Equal(t, 3, worker.ProcessOnce(ctx))
	require.Empty(t, store.Outbox().AllPending())

	types := make([]string, 0, len(publisher.events))
	for _, event := range publisher.events {
		types = append(types, event.EventType)
		require.NotEqual(t, uuid.Nil.String(), event.AggregateID)
	}
	require.ElementsMatch(t, []string{
		domain.EventOrderCreated,
		domain.EventPaymentStatusChanged,
		domain.EventOrderStatusChanged,
	}, types)
}
