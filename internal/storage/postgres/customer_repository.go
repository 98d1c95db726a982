package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

const customerColumns = `id, uuid, name, cpf, email, created_at, updated_at`

type customerRepository struct {
	store *Store
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{store: store}
}

func (r *customerRepository) Exists(ctx context.Context, cpf domain.CPF, email domain.Email) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	err := r.store.conn(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM customers WHERE cpf = $1 OR email = $2)
	`, cpf.String(), email.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check customer exists: %w", err)
	}
	return exists, nil
}

func (r *customerRepository) GetByCPF(ctx context.Context, cpf domain.CPF) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE cpf = $1`, cpf.String())
	customer, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, domain.CustomerNotFound("cpf", cpf.String())
	}
	return customer, err
}

func (r *customerRepository) GetByUUID(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.store.conn(ctx).QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE uuid = $1`, id)
	customer, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, domain.CustomerNotFound("uuid", id.String())
	}
	return customer, err
}

func (r *customerRepository) Add(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.store.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO customers (uuid, name, cpf, email, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`,
		customer.UUID, customer.Name, customer.CPF.String(), customer.Email.String(),
		customer.CreatedAt, customer.UpdatedAt,
	).Scan(&customer.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.ErrCustomerExists
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return customer, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var (
		c     domain.Customer
		cpf   string
		email string
	)
	if err := row.Scan(&c.ID, &c.UUID, &c.Name, &cpf, &email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, err
		}
		return domain.Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	return restoreCustomer(c, cpf, email)
}

// restoreCustomer восстанавливает value objects из сохранённых строк.
func restoreCustomer(c domain.Customer, cpf, email string) (domain.Customer, error) {
	var err error
	if c.CPF, err = domain.NewCPF(cpf); err != nil {
		return domain.Customer{}, fmt.Errorf("restore customer %s cpf: %w", c.UUID, err)
	}
	if c.Email, err = domain.NewEmail(email); err != nil {
		return domain.Customer{}, fmt.Errorf("restore customer %s email: %w", c.UUID, err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
