package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

const paymentSelect = `
	SELECT p.id, p.uuid, o.uuid, p.status, p.details, p.created_at, p.updated_at
	FROM payments p
	JOIN orders o ON o.id = p.order_id
`

type paymentRepository struct {
	store *Store
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{store: store}
}

func (r *paymentRepository) Add(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	details, err := json.Marshal(payment.Details)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("marshal payment details: %w", err)
	}

	err = r.store.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO payments (uuid, order_id, status, details, created_at, updated_at)
		VALUES ($1, (SELECT id FROM orders WHERE uuid = $2), $3, $4::jsonb, $5, $6)
		RETURNING id
	`,
		payment.UUID, payment.OrderUUID, string(payment.Status), string(details),
		payment.CreatedAt, payment.UpdatedAt,
	).Scan(&payment.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Payment{}, &domain.ConflictError{Message: "Payment already exists"}
		}
		return domain.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return payment, nil
}

func (r *paymentRepository) GetByUUID(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	payment, err := r.get(ctx, paymentSelect+` WHERE p.uuid = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, domain.PaymentNotFound("uuid", id.String())
	}
	return payment, err
}

func (r *paymentRepository) GetByOrderUUID(ctx context.Context, orderID uuid.UUID) (domain.Payment, error) {
	payment, err := r.get(ctx, paymentSelect+` WHERE o.uuid = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, domain.PaymentNotFound("order_uuid", orderID.String())
	}
	return payment, err
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, updatedAt time.Time) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.conn(ctx).ExecContext(ctx, `
		UPDATE payments SET status = $2, updated_at = $3 WHERE uuid = $1
	`, id, string(status), updatedAt)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Payment{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.Payment{}, domain.PaymentNotFound("uuid", id.String())
	}
	return r.GetByUUID(ctx, id)
}

func (r *paymentRepository) get(ctx context.Context, query string, arg any) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		p       domain.Payment
		status  string
		details []byte
	)
	err := r.store.conn(ctx).QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.UUID, &p.OrderUUID, &status, &details, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, err
		}
		return domain.Payment{}, fmt.Errorf("scan payment: %w", err)
	}
	if err := json.Unmarshal(details, &p.Details); err != nil {
		return domain.Payment{}, fmt.Errorf("unmarshal payment details: %w", err)
	}
	p.Status = domain.PaymentStatus(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
