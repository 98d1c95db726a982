package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MaxItemQuantity ограничивает количество в одной позиции заказа.
const MaxItemQuantity = 1000

var errOrderTotalOverflow = newValidationError("Order total exceeds the supported amount.", "")

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID   int64
	UUID uuid.UUID
	// Product: снимок товара на момент оформления.
	Product  Product
	Quantity int
	// UnitPriceMinor фиксируется при создании позиции и не меняется вслед за каталогом.
	UnitPriceMinor int64
	CreatedAt      time.Time
}

// NewOrderItem снимает цену товара в позицию.
func NewOrderItem(product Product, quantity int) (OrderItem, error) {
	item := OrderItem{
		UUID:           uuid.New(),
		Product:        product,
		Quantity:       quantity,
		UnitPriceMinor: product.PriceMinor,
		CreatedAt:      time.Now().UTC(),
	}
	if err := firstError(item.Validate()); err != nil {
		return OrderItem{}, err
	}
	return item, nil
}

func (i *OrderItem) Validate() []error {
	return collect(
		assertNotNilUUID(i.Product.UUID, "Order item product is required."),
		assertPositive(int64(i.Quantity), "Order item quantity must be greater than zero."),
		assertTrue(i.Quantity <= MaxItemQuantity, fmt.Sprintf("Order item quantity must not exceed %d.", MaxItemQuantity)),
		assertNonNegative(i.UnitPriceMinor, "Order item unit price must be non-negative."),
	)
}

// SubtotalMinor возвращает цену позиции с учётом количества.
// При переполнении int64 результат не определён, см. subtotal.
func (i OrderItem) SubtotalMinor() int64 {
	sub, _ := i.subtotal()
	return sub
}

func (i OrderItem) subtotal() (int64, bool) {
	return mulMinor(i.UnitPriceMinor, int64(i.Quantity))
}

// mulMinor и addMinor считают суммы в минорных единицах; ok=false при переполнении.
// Отрицательные значения отсекает валидация позиций.
func mulMinor(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

func addMinor(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// itemsTotal суммирует позиции; ok=false, если сумма не помещается в int64.
func itemsTotal(items []OrderItem) (int64, bool) {
	var total int64
	for _, item := range items {
		sub, ok := item.subtotal()
		if !ok {
			return 0, false
		}
		if total, ok = addMinor(total, sub); !ok {
			return 0, false
		}
	}
	return total, true
}

// Order агрегирует клиента, позиции и статус.
type Order struct {
	ID         int64
	UUID       uuid.UUID
	Customer   Customer
	Items      []OrderItem
	Status     OrderStatus
	TotalMinor int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewOrder создаёт заказ в статусе payment_pending.
func NewOrder(customer Customer, items []OrderItem) (Order, error) {
	if len(items) == 0 {
		return Order{}, ErrEmptyOrder
	}

	now := time.Now().UTC()
	order := Order{
		UUID:      uuid.New(),
		Customer:  customer,
		Items:     append([]OrderItem(nil), items...),
		Status:    OrderStatusPaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := order.recalculate(); err != nil {
		return Order{}, err
	}

	if err := firstError(order.Validate()); err != nil {
		return Order{}, err
	}
	return order, nil
}

// AddItem добавляет позицию и пересчитывает сумму.
func (o *Order) AddItem(item OrderItem) error {
	if err := firstError(item.Validate()); err != nil {
		return err
	}
	o.Items = append(o.Items, item)
	if err := o.recalculate(); err != nil {
		o.Items = o.Items[:len(o.Items)-1]
		return err
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// TransitionTo — единственный способ сменить статус заказа.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{Entity: "order", From: string(o.Status), To: string(target)}
	}
	o.Status = target
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (o *Order) recalculate() error {
	total, ok := itemsTotal(o.Items)
	if !ok {
		return errOrderTotalOverflow
	}
	o.TotalMinor = total
	return nil
}

// Validate проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) Validate() []error {
	errs := collect(
		assertNotNilUUID(o.UUID, "Order uuid is required."),
		assertNotNilUUID(o.Customer.UUID, "Order customer is required."),
		assertOneOf(o.Status, []OrderStatus{
			OrderStatusPaymentPending, OrderStatusReceived, OrderStatusProcessing,
			OrderStatusReady, OrderStatusCompleted,
		}, "Order status is invalid."),
	)
	if len(o.Items) == 0 {
		errs = append(errs, ErrEmptyOrder)
	}

	for i := range o.Items {
		errs = append(errs, o.Items[i].Validate()...)
	}
	// Сверяем сумму заказа с суммой позиций.
	switch calc, ok := itemsTotal(o.Items); {
	case !ok:
		errs = append(errs, errOrderTotalOverflow)
	case calc != o.TotalMinor:
		errs = append(errs, newValidationError("Order total does not match items sum.", ""))
	}

	return errs
}
