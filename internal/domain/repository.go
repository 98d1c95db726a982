package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Все методы поиска возвращают *NotFoundError, если записи нет.

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	// Exists сообщает, есть ли клиент с таким CPF или таким email.
	Exists(ctx context.Context, cpf CPF, email Email) (bool, error)
	GetByCPF(ctx context.Context, cpf CPF) (Customer, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (Customer, error)
	// Add сохраняет клиента и назначает ему ID. При нарушении уникальности возвращает ErrCustomerExists.
	Add(ctx context.Context, customer Customer) (Customer, error)
}

// ProductRepository описывает требования к каталогу.
type ProductRepository interface {
	// Create сохраняет товар. Для занятого названия возвращает ErrProductExists.
	Create(ctx context.Context, product Product) (Product, error)
	// Update перезаписывает товар с тем же UUID.
	Update(ctx context.Context, product Product) (Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, category Category) ([]Product, error)
	// GetByName ищет без учёта регистра.
	GetByName(ctx context.Context, name string) (Product, error)
	// GetByUUIDs возвращает найденные товары; отсутствующие id просто пропускаются.
	GetByUUIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (Product, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями.
	Create(ctx context.Context, order Order) (Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus, updatedAt time.Time) (Order, error)
	// ListAll возвращает заказы по возрастанию created_at.
	ListAll(ctx context.Context) ([]Order, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (Order, error)
	// ListByStatuses оставляет только переданные статусы и сортирует по их порядку в statuses,
	// затем по created_at.
	ListByStatuses(ctx context.Context, statuses []OrderStatus) ([]Order, error)
}

// PaymentRepository описывает требования к хранилищу платежей.
type PaymentRepository interface {
	Add(ctx context.Context, payment Payment) (Payment, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (Payment, error)
	// GetByOrderUUID возвращает платёж, созданный для заказа.
	GetByOrderUUID(ctx context.Context, orderID uuid.UUID) (Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status PaymentStatus, updatedAt time.Time) (Payment, error)
}
