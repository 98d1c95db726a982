// Package checkout оформляет заказ: проверяет клиента и товары, фиксирует
// цены, инициирует оплату и сохраняет заказ с платежом в одной транзакции.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/metrics"
	"github.com/vladislavdragonenkov/fastfood/internal/service/journal"
)

// ItemInput описывает строку заказа. Повторяющиеся товары остаются отдельными позициями.
type ItemInput struct {
	ProductUUID uuid.UUID
	Quantity    int
}

type Input struct {
	CustomerUUID uuid.UUID
	Items        []ItemInput
}

// Result — сохранённый заказ и созданный для него платёж.
type Result struct {
	Order   domain.Order
	Payment domain.Payment
}

// Dependencies: зависимости сервиса оформления.
type Dependencies struct {
	Customers domain.CustomerRepository
	Products  domain.ProductRepository
	Orders    domain.OrderRepository
	Payments  domain.PaymentRepository
	UoW       domain.UnitOfWork
	Gateway   domain.PaymentGateway
	Journal   *journal.Recorder
	Metrics   *metrics.OrderMetrics
	Logger    *log.Entry
}

type Service struct {
	deps   Dependencies
	logger *log.Entry
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}
	return &Service{deps: deps, logger: logger}
}

// Checkout оформляет заказ. Шлюз вызывается до транзакции: у заказа уже есть
// uuid и сумма, а внешний вызов не держит транзакцию открытой.
func (s *Service) Checkout(ctx context.Context, in Input) (Result, error) {
	finish := s.deps.Metrics.CheckoutStarted()
	defer finish()

	result, err := s.checkout(ctx, in)
	if err != nil {
		s.deps.Metrics.CheckoutFailed(failureReason(err))
		entry := s.logger.WithError(err).WithField("customer_uuid", in.CustomerUUID)
		if domain.IsClientError(err) {
			entry.Info("checkout rejected")
		} else {
			entry.Error("checkout failed")
		}
		return Result{}, err
	}

	s.deps.Metrics.CheckoutSucceeded()
	s.logger.WithFields(log.Fields{
		"order_uuid":   result.Order.UUID,
		"payment_uuid": result.Payment.UUID,
		"total_minor":  result.Order.TotalMinor,
		"items":        len(result.Order.Items),
	}).Info("checkout completed")
	return result, nil
}

func (s *Service) checkout(ctx context.Context, in Input) (Result, error) {
	if len(in.Items) == 0 {
		return Result{}, domain.ErrEmptyOrder
	}

	customer, err := s.deps.Customers.GetByUUID(ctx, in.CustomerUUID)
	if err != nil {
		return Result{}, err
	}

	products, err := s.loadProducts(ctx, in.Items)
	if err != nil {
		return Result{}, err
	}

	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		item, err := domain.NewOrderItem(products[line.ProductUUID], line.Quantity)
		if err != nil {
			return Result{}, err
		}
		items = append(items, item)
	}

	order, err := domain.NewOrder(customer, items)
	if err != nil {
		return Result{}, err
	}

	payment, err := s.deps.Gateway.Process(ctx, order)
	if err != nil {
		return Result{}, &gatewayError{err: err}
	}

	var result Result
	err = s.deps.UoW.Do(ctx, func(ctx context.Context) error {
		savedOrder, err := s.deps.Orders.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		savedPayment, err := s.deps.Payments.Add(ctx, payment)
		if err != nil {
			return fmt.Errorf("add payment: %w", err)
		}
		if err := s.deps.Journal.OrderCreated(ctx, savedOrder); err != nil {
			return err
		}
		result = Result{Order: savedOrder, Payment: savedPayment}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// loadProducts читает товары одним запросом и сообщает обо всех отсутствующих сразу.
func (s *Service) loadProducts(ctx context.Context, lines []ItemInput) (map[uuid.UUID]domain.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line.ProductUUID]; dup {
			continue
		}
		seen[line.ProductUUID] = struct{}{}
		ids = append(ids, line.ProductUUID)
	}

	found, err := s.deps.Products.GetByUUIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uuid.UUID]domain.Product, len(found))
	for _, p := range found {
		byID[p.UUID] = p
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MissingProductsError{IDs: missing}
	}
	return byID, nil
}

type gatewayError struct {
	err error
}

func (e *gatewayError) Error() string { return "payment gateway: " + e.err.Error() }

func (e *gatewayError) Unwrap() error { return e.err }

func failureReason(err error) string {
	var gw *gatewayError
	switch {
	case errors.As(err, &gw):
		return "gateway"
	case errors.Is(err, domain.ErrMissingProducts):
		return "missing_products"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "storage"
	}
}
