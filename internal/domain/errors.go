package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Виды ошибок. Конкретные типы ниже сопоставляются с ними через errors.Is.
var (
	// ErrValidation — нарушен инвариант value object или сущности.
	ErrValidation = errors.New("validation error")
	// ErrNotFound — запись не найдена по ключу поиска.
	ErrNotFound = errors.New("not found")
	// ErrConflict — запись с такими уникальными полями уже существует.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition — запрошенный переход статуса запрещён.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrMissingProducts — часть товаров из заказа отсутствует в каталоге.
	ErrMissingProducts = errors.New("missing products")
)

var (
	// ErrEmptyOrder возвращается при попытке оформить заказ без позиций.
	ErrEmptyOrder = &ValidationError{Message: "Order must contain at least one item."}
	// ErrCustomerExists — клиент с таким CPF или email уже зарегистрирован.
	ErrCustomerExists = &ConflictError{Message: "Customer already exists"}
	// ErrProductExists — товар с таким названием уже есть в каталоге.
	ErrProductExists = &ConflictError{Message: "Product already exists"}
	// ErrOutboxPublish — ошибка при обновлении статуса сообщения outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ValidationError описывает нарушение инварианта. Value хранит исходное значение, если оно есть.
type ValidationError struct {
	Message string
	Value   string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(message, value string) *ValidationError {
	return &ValidationError{Message: message, Value: value}
}

func invalidEnumValue(value string) *ValidationError {
	return newValidationError(fmt.Sprintf("invalid enum value: %q", value), value)
}

// NotFoundError несёт параметры поиска, по которым запись не нашлась.
type NotFoundError struct {
	Resource string
	Message  string
	Params   map[string]string
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CustomerNotFound строит ошибку поиска клиента по ключу (cpf, uuid).
func CustomerNotFound(key, value string) *NotFoundError {
	return &NotFoundError{
		Resource: "customer",
		Message:  "Customer not found.",
		Params:   map[string]string{key: value},
	}
}

// ProductNotFound строит ошибку поиска товара по uuid.
func ProductNotFound(id uuid.UUID) *NotFoundError {
	return &NotFoundError{
		Resource: "product",
		Message:  "Product not found.",
		Params:   map[string]string{"uuid": id.String()},
	}
}

// OrderNotFound строит ошибку поиска заказа по uuid.
func OrderNotFound(id uuid.UUID) *NotFoundError {
	return &NotFoundError{
		Resource: "order",
		Message:  fmt.Sprintf("Order with uuid '%s' not found.", id),
		Params:   map[string]string{"uuid": id.String()},
	}
}

// PaymentNotFound строит ошибку поиска платежа (по uuid платежа или заказа).
func PaymentNotFound(key, value string) *NotFoundError {
	return &NotFoundError{
		Resource: "payment",
		Message:  "Payment not found.",
		Params:   map[string]string{key: value},
	}
}

// ConflictError — нарушение уникальности.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// InvalidTransitionError называет исходный и целевой статусы запрещённого перехода.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// MissingProductsError перечисляет все отсутствующие товары, а не только первый.
type MissingProductsError struct {
	IDs []uuid.UUID
}

func (e *MissingProductsError) Error() string {
	ids := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		ids = append(ids, id.String())
	}
	return "Order creation failed due to missing products: " + strings.Join(ids, ", ")
}

func (e *MissingProductsError) Is(target error) bool { return target == ErrMissingProducts }

// IsClientError сообщает, что ошибка вызвана входными данными, а не сбоем системы.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrMissingProducts)
}
