package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

const productColumns = `id, uuid, name, category, price_minor, description, images, created_at, updated_at`

type productRepository struct {
	store *Store
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.store.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO products (uuid, name, category, price_minor, description, images, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`,
		product.UUID, product.Name, string(product.Category), product.PriceMinor,
		product.Description, nonNilImages(product.Images), product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrProductExists
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return product, nil
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.store.conn(ctx).QueryRowContext(ctx, `
		UPDATE products
		SET name = $2,
		    category = $3,
		    price_minor = $4,
		    description = $5,
		    images = $6,
		    updated_at = $7
		WHERE uuid = $1
		RETURNING id, created_at
	`,
		product.UUID, product.Name, string(product.Category), product.PriceMinor,
		product.Description, nonNilImages(product.Images), product.UpdatedAt,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ProductNotFound(product.UUID)
		}
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrProductExists
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return product, nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.conn(ctx).ExecContext(ctx, `DELETE FROM products WHERE uuid = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for product delete: %w", err)
	}
	if affected == 0 {
		return domain.ProductNotFound(id)
	}
	return nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

func (r *productRepository) ListByCategory(ctx context.Context, category domain.Category) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY id`, string(category))
}

func (r *productRepository) GetByName(ctx context.Context, name string) (domain.Product, error) {
	products, err := r.query(ctx,
		`SELECT `+productColumns+` FROM products WHERE lower(name) = lower($1)`, strings.TrimSpace(name))
	if err != nil {
		return domain.Product{}, err
	}
	if len(products) == 0 {
		return domain.Product{}, &domain.NotFoundError{
			Resource: "product",
			Message:  "Product not found.",
			Params:   map[string]string{"name": name},
		}
	}
	return products[0], nil
}

func (r *productRepository) GetByUUIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	return r.query(ctx,
		`SELECT `+productColumns+` FROM products WHERE uuid = ANY($1::uuid[]) ORDER BY id`, raw)
}

func (r *productRepository) GetByUUID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	products, err := r.query(ctx, `SELECT `+productColumns+` FROM products WHERE uuid = $1`, id)
	if err != nil {
		return domain.Product{}, err
	}
	if len(products) == 0 {
		return domain.Product{}, domain.ProductNotFound(id)
	}
	return products[0], nil
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	// pgtype.Map не потокобезопасен, поэтому создаётся на запрос.
	types := pgtype.NewMap()
	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p        domain.Product
			category string
		)
		if err := rows.Scan(
			&p.ID, &p.UUID, &p.Name, &category, &p.PriceMinor,
			&p.Description, types.SQLScanner(&p.Images), &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Category = domain.Category(category)
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}

var _ domain.ProductRepository = (*productRepository)(nil)
