package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/metrics"
	"github.com/vladislavdragonenkov/fastfood/internal/service/catalog"
	"github.com/vladislavdragonenkov/fastfood/internal/service/checkout"
	"github.com/vladislavdragonenkov/fastfood/internal/service/customer"
	"github.com/vladislavdragonenkov/fastfood/internal/service/journal"
	"github.com/vladislavdragonenkov/fastfood/internal/service/order"
	"github.com/vladislavdragonenkov/fastfood/internal/service/payment"
	"github.com/vladislavdragonenkov/fastfood/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// brokenController отвечает внутренней ошибкой и паникой.
type brokenController struct{}

func (brokenController) RegisterRoutes(r gin.IRouter) {
	r.GET("/broken", func(c *gin.Context) {
		writeError(c, nil, errors.New("pq: connection reset by peer"))
	})
	r.GET("/panic", func(*gin.Context) { panic("boom") })
}

func newRouter(cfg config.Config, reg prometheus.Registerer) (*gin.Engine, *memory.Store) {
	store := memory.NewStore()
	rec := journal.NewRecorder(store.Outbox(), store.Timeline(), nil)
	orders := order.NewService(store.Orders(), store.Timeline(), store.UnitOfWork(), rec, nil)
	checkoutSvc := checkout.NewService(checkout.Dependencies{
		Customers: store.Customers(),
		Products:  store.Products(),
		Orders:    store.Orders(),
		Payments:  store.Payments(),
		UoW:       store.UnitOfWork(),
		Gateway:   payment.NewMercadoPagoGateway(""),
		Journal:   rec,
	})

	router := NewRouter(RouterOptions{
		Config:  cfg,
		Metrics: metrics.NewHTTPMetrics(reg),
		Controllers: []Controller{
			NewCustomerController(customer.NewService(store.Customers(), nil), nil),
			NewProductController(catalog.NewService(store.Products(), nil), nil),
			NewOrderController(checkoutSvc, orders, nil),
			NewPaymentController(payment.NewService(store.Payments(), orders, store.UnitOfWork(), rec, nil, nil), nil),
			brokenController{},
		},
	})
	return router, store
}

type APISuite struct {
	suite.Suite
	router *gin.Engine
	store  *memory.Store
}

func (s *APISuite) SetupTest() {
	cfg := config.Default()
	cfg.HTTP.RateLimit.Enabled = false
	s.router, s.store = newRouter(cfg, prometheus.NewRegistry())
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APISuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *APISuite) detail(w *httptest.ResponseRecorder) string {
	var e ErrorResponse
	s.decode(w, &e)
	return e.Detail
}

func (s *APISuite) createCustomer() CustomerOut {
	w := s.do(http.MethodPost, "/customer", CustomerIn{Name: "John Doe", CPF: "529.982.247-25", Email: "john@x.com"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var out CustomerOut
	s.decode(w, &out)
	return out
}

func (s *APISuite) createProduct(name, category string, price float64) ProductOut {
	w := s.do(http.MethodPost, "/products", ProductIn{
		Name:        name,
		Category:    category,
		Price:       price,
		Description: name,
		Images:      []string{"https://img.example.com/" + name + ".png"},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var out ProductOut
	s.decode(w, &out)
	return out
}

func (s *APISuite) checkout(customerID string, items ...CheckoutItemIn) OrderOut {
	w := s.do(http.MethodPost, "/orders/checkout", CheckoutIn{CustomerID: customerID, Items: items})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var out OrderOut
	s.decode(w, &out)
	return out
}

func (s *APISuite) TestCustomerLifecycle() {
	created := s.createCustomer()
	s.Equal("John Doe", created.Name)
	s.Equal("52998224725", created.CPF)
	s.Equal("john@x.com", created.Email)
	s.NotEmpty(created.UUID)
	s.False(created.CreatedAt.IsZero())

	w := s.do(http.MethodPost, "/customer", CustomerIn{Name: "John Doe", CPF: "52998224725", Email: "john@x.com"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Customer already exists", s.detail(w))

	w = s.do(http.MethodGet, "/customer/52998224725", nil)
	s.Equal(http.StatusOK, w.Code)
	var found CustomerOut
	s.decode(w, &found)
	s.Equal(created.UUID, found.UUID)

	w = s.do(http.MethodGet, "/customer/11144477735", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Customer not found.", s.detail(w))

	w = s.do(http.MethodGet, "/customer/12345678900", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid CPF.", s.detail(w))
}

func (s *APISuite) TestCustomerValidation() {
	w := s.do(http.MethodPost, "/customer", CustomerIn{Name: "Ana", CPF: "52998224725", Email: "not-an-email"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid email.", s.detail(w))

	w = s.do(http.MethodPost, "/customer", `{"name":`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APISuite) TestProductCRUD() {
	burger := s.createProduct("X-Burger", "Lanche", 25.9)
	s.Equal("lanche", burger.Category)
	s.InDelta(25.9, burger.Price, 0.0001)

	s.createProduct("Soda", "bebida", 7)

	w := s.do(http.MethodPost, "/products", ProductIn{Name: "x-burger", Category: "lanche", Price: 1, Description: "d", Images: []string{"i"}})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Product already exists", s.detail(w))

	w = s.do(http.MethodGet, "/products?category=bebida", nil)
	s.Equal(http.StatusOK, w.Code)
	var drinks []ProductOut
	s.decode(w, &drinks)
	s.Require().Len(drinks, 1)
	s.Equal("Soda", drinks[0].Name)

	w = s.do(http.MethodGet, "/products?category=pizza", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/products/"+burger.UUID, ProductIn{
		Name: "X-Burger", Category: "lanche", Price: 29.9, Description: "new", Images: []string{"a.png"},
	})
	s.Equal(http.StatusOK, w.Code)
	var updated ProductOut
	s.decode(w, &updated)
	s.InDelta(29.9, updated.Price, 0.0001)

	w = s.do(http.MethodGet, "/products/"+burger.UUID, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/products/"+burger.UUID, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/products/"+burger.UUID, nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Product not found.", s.detail(w))

	w = s.do(http.MethodGet, "/products/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APISuite) TestCheckoutAndPaymentFlow() {
	customer := s.createCustomer()
	burger := s.createProduct("X-Burger", "lanche", 25.9)
	soda := s.createProduct("Soda", "bebida", 7)

	created := s.checkout(customer.UUID,
		CheckoutItemIn{ProductID: burger.UUID, Quantity: 1},
		CheckoutItemIn{ProductID: soda.UUID, Quantity: 3},
	)
	s.Equal("payment_pending", created.Status)
	s.InDelta(25.9+3*7, created.TotalValue, 0.0001)
	s.Require().Len(created.Items, 2)
	s.Equal("X-Burger", created.Items[0].ProductName)
	s.Equal("John Doe", created.Customer.Name)

	w := s.do(http.MethodGet, "/payment/"+created.UUID+"/status", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var pay PaymentStatusOut
	s.decode(w, &pay)
	s.Equal("pending", pay.Status)

	w = s.do(http.MethodPost, "/payment/"+pay.UUID+"/result", StatusIn{Status: "processing"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/payment/"+pay.UUID+"/result", StatusIn{Status: "approved"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.decode(w, &pay)
	s.Equal("approved", pay.Status)

	w = s.do(http.MethodGet, "/orders/active", nil)
	s.Equal(http.StatusOK, w.Code)
	var active []OrderOut
	s.decode(w, &active)
	s.Require().Len(active, 1)
	s.Equal("received", active[0].Status)

	w = s.do(http.MethodGet, "/orders/"+created.UUID+"/timeline", nil)
	s.Equal(http.StatusOK, w.Code)
	var timeline []TimelineEventOut
	s.decode(w, &timeline)
	s.Len(timeline, 3)

	s.Len(s.store.Outbox().AllPending(), 3)
}

func (s *APISuite) TestOrderStatusTransitions() {
	customer := s.createCustomer()
	soda := s.createProduct("Soda", "bebida", 7)
	created := s.checkout(customer.UUID, CheckoutItemIn{ProductID: soda.UUID, Quantity: 1})
	path := "/orders/" + created.UUID + "/status"

	w := s.do(http.MethodPut, path, StatusIn{Status: "ready"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.detail(w), "payment_pending")

	for _, next := range []string{"received", "processing", "ready", "completed"} {
		w = s.do(http.MethodPut, path, StatusIn{Status: next})
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		var out OrderOut
		s.decode(w, &out)
		s.Equal(next, out.Status)
	}

	w = s.do(http.MethodPut, path, StatusIn{Status: "canceled"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/orders/"+uuid.NewString()+"/status", StatusIn{Status: "received"})
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/orders", nil)
	var all []OrderOut
	s.decode(w, &all)
	s.Len(all, 1)
}

func (s *APISuite) TestCheckoutErrors() {
	customer := s.createCustomer()
	soda := s.createProduct("Soda", "bebida", 7)
	missing := uuid.NewString()

	w := s.do(http.MethodPost, "/orders/checkout", CheckoutIn{CustomerID: customer.UUID})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Order must contain at least one item.", s.detail(w))

	w = s.do(http.MethodPost, "/orders/checkout", CheckoutIn{
		CustomerID: customer.UUID,
		Items:      []CheckoutItemIn{{ProductID: soda.UUID, Quantity: 1}, {ProductID: missing, Quantity: 1}},
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(fmt.Sprintf("Order creation failed due to missing products: %s", missing), s.detail(w))

	w = s.do(http.MethodPost, "/orders/checkout", CheckoutIn{
		CustomerID: uuid.NewString(),
		Items:      []CheckoutItemIn{{ProductID: soda.UUID, Quantity: 1}},
	})
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/orders/checkout", CheckoutIn{CustomerID: "abc"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/payment/"+uuid.NewString()+"/status", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Payment not found.", s.detail(w))
}

func (s *APISuite) TestCheckoutRejectsOversizedQuantity() {
	customer := s.createCustomer()
	burger := s.createProduct("Burger", "lanche", 25.9)

	for _, qty := range []int{domain.MaxItemQuantity + 1, math.MaxInt64 / 50} {
		w := s.do(http.MethodPost, "/orders/checkout", CheckoutIn{
			CustomerID: customer.UUID,
			Items:      []CheckoutItemIn{{ProductID: burger.UUID, Quantity: qty}},
		})
		s.Equal(http.StatusBadRequest, w.Code, w.Body.String())
		s.Equal(fmt.Sprintf("Order item quantity must not exceed %d.", domain.MaxItemQuantity), s.detail(w))
	}

	orders, err := s.store.Orders().ListAll(context.Background())
	s.Require().NoError(err)
	s.Empty(orders)
}

func (s *APISuite) TestInternalErrorsAreHidden() {
	w := s.do(http.MethodGet, "/broken", nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal(internalErrorDetail, s.detail(w))

	w = s.do(http.MethodGet, "/panic", nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal(internalErrorDetail, s.detail(w))
}

func (s *APISuite) TestRequestIDAndUnknownRoutes() {
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal("req-42", w.Header().Get(RequestIDHeader))

	w = s.do(http.MethodGet, "/nope", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.NotEmpty(w.Header().Get(RequestIDHeader))

	w = s.do(http.MethodPatch, "/orders", nil)
	s.Equal(http.StatusMethodNotAllowed, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, Rate: 0.001, Burst: 2}
	router, _ := newRouter(cfg, prometheus.NewRegistry())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}
}

func TestMoneyConversion(t *testing.T) {
	cases := map[float64]int64{25.9: 2590, 0.1: 10, 19.99: 1999, 7: 700}
	for amount, minor := range cases {
		if got := toMinor(amount); got != minor {
			t.Errorf("toMinor(%v) = %d, want %d", amount, got, minor)
		}
		if got := fromMinor(minor); got != amount {
			t.Errorf("fromMinor(%d) = %v, want %v", minor, got, amount)
		}
	}
}
