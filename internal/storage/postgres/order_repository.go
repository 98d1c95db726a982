package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

const orderSelect = `
	SELECT o.id, o.uuid, o.status, o.total_minor, o.created_at, o.updated_at,
	       c.id, c.uuid, c.name, c.cpf, c.email, c.created_at, c.updated_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
`

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

// Create сохраняет заказ с позициями. Вне UnitOfWork открывает собственную транзакцию.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	err := r.store.UnitOfWork().Do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		db := r.store.conn(ctx)
		err := db.QueryRowContext(ctx, `
			INSERT INTO orders (uuid, customer_id, status, total_minor, created_at, updated_at)
			VALUES ($1, (SELECT id FROM customers WHERE uuid = $2), $3, $4, $5, $6)
			RETURNING id
		`,
			order.UUID, order.Customer.UUID, string(order.Status), order.TotalMinor,
			order.CreatedAt, order.UpdatedAt,
		).Scan(&order.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return &domain.ConflictError{Message: "Order already exists"}
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			if err := db.QueryRowContext(ctx, `
				INSERT INTO order_items (
					uuid, order_id, product_id, product_uuid, product_name, product_category,
					quantity, unit_price_minor, created_at
				) VALUES ($1, $2, (SELECT id FROM products WHERE uuid = $3), $3, $4, $5, $6, $7, $8)
				RETURNING id
			`,
				item.UUID, order.ID, item.Product.UUID, item.Product.Name, string(item.Product.Category),
				item.Quantity, item.UnitPriceMinor, item.CreatedAt,
			).Scan(&item.ID); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.conn(ctx).ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = $3 WHERE uuid = $1
	`, id, string(status), updatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Order{}, domain.OrderNotFound(id)
	}
	return r.GetByUUID(ctx, id)
}

func (r *orderRepository) GetByUUID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	orders, err := r.query(ctx, orderSelect+` WHERE o.uuid = $1`, id)
	if err != nil {
		return domain.Order{}, err
	}
	if len(orders) == 0 {
		return domain.Order{}, domain.OrderNotFound(id)
	}
	return orders[0], nil
}

func (r *orderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx, orderSelect+` ORDER BY o.created_at, o.id`)
}

// ListByStatuses упорядочивает по позиции статуса в аргументе, затем по времени создания.
func (r *orderRepository) ListByStatuses(ctx context.Context, statuses []domain.OrderStatus) ([]domain.Order, error) {
	if len(statuses) == 0 {
		return []domain.Order{}, nil
	}
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}
	return r.query(ctx, orderSelect+`
		WHERE o.status = ANY($1::text[])
		ORDER BY array_position($1::text[], o.status), o.created_at, o.id
	`, raw)
}

// query читает заказы, затем одним запросом догружает позиции.
// Вложенные запросы при открытых rows недопустимы внутри транзакции.
func (r *orderRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	db := r.store.conn(ctx)
	orders, err := scanOrders(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := loadItems(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return orders, nil
}

func scanOrders(ctx context.Context, db executor, query string, args ...any) ([]domain.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			o      domain.Order
			c      domain.Customer
			status string
			cpf    string
			email  string
		)
		if err := rows.Scan(
			&o.ID, &o.UUID, &status, &o.TotalMinor, &o.CreatedAt, &o.UpdatedAt,
			&c.ID, &c.UUID, &c.Name, &cpf, &email, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		if o.Customer, err = restoreCustomer(c, cpf, email); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		o.CreatedAt = o.CreatedAt.UTC()
		o.UpdatedAt = o.UpdatedAt.UTC()
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

// loadItems берёт снимок товара из позиции, если товар удалён из каталога.
func loadItems(ctx context.Context, db executor, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT oi.order_id, oi.id, oi.uuid, oi.quantity, oi.unit_price_minor, oi.created_at,
		       oi.product_uuid, oi.product_name, oi.product_category,
		       COALESCE(p.id, 0), COALESCE(p.price_minor, oi.unit_price_minor),
		       COALESCE(p.description, ''), COALESCE(p.images, '{}'::text[]),
		       COALESCE(p.created_at, oi.created_at), COALESCE(p.updated_at, oi.created_at)
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1::bigint[])
		ORDER BY oi.order_id, oi.id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	types := pgtype.NewMap()
	result := make(map[int64][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID  int64
			item     domain.OrderItem
			product  domain.Product
			category string
		)
		if err := rows.Scan(
			&orderID, &item.ID, &item.UUID, &item.Quantity, &item.UnitPriceMinor, &item.CreatedAt,
			&product.UUID, &product.Name, &category,
			&product.ID, &product.PriceMinor, &product.Description, types.SQLScanner(&product.Images),
			&product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		product.Category = domain.Category(category)
		product.CreatedAt = product.CreatedAt.UTC()
		product.UpdatedAt = product.UpdatedAt.UTC()
		item.CreatedAt = item.CreatedAt.UTC()
		item.Product = product
		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return result, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
