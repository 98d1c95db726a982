package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// Статусы строки outbox_messages.
const (
	outboxPending = "pending"
	outboxSent    = "sent"
	outboxFailed  = "failed"

	defaultOutboxBatch = 100
)

const (
	insertOutboxSQL = `
		INSERT INTO outbox_messages
			(id, aggregate_type, aggregate_id, event_type, payload, status, attempt_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7)`

	pendingOutboxSQL = `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2`

	outboxBacklogSQL = `
		SELECT COUNT(*), MIN(created_at)
		FROM outbox_messages
		WHERE status = $1`

	finishOutboxSQL = `
		UPDATE outbox_messages
		SET status = $2, attempt_count = attempt_count + 1, updated_at = $3
		WHERE id = $1`
)

type outboxRepository struct {
	store *Store
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository.
// Enqueue пишет в транзакцию из ctx, поэтому событие фиксируется вместе с изменением заказа.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{store: store}
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	_, err := r.store.conn(ctx).ExecContext(ctx, insertOutboxSQL,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, outboxPending, time.Now().UTC())
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue %s: %w", msg.EventType, err)
	}
	return msg, nil
}

func (r *outboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultOutboxBatch
	}
	rows, err := r.store.conn(ctx).QueryContext(ctx, pendingOutboxSQL, outboxPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending outbox: %w", err)
	}
	defer rows.Close()

	var batch []domain.OutboxMessage
	for rows.Next() {
		var m domain.OutboxMessage
		if err := rows.Scan(&m.ID, &m.AggregateType, &m.AggregateID, &m.EventType, &m.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		batch = append(batch, m)
	}
	return batch, rows.Err()
}

func (r *outboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	err := r.store.conn(ctx).QueryRowContext(ctx, outboxBacklogSQL, outboxPending).Scan(&stats.PendingCount, &oldest)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox backlog: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.finish(ctx, id, outboxSent)
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.finish(ctx, id, outboxFailed)
}

func (r *outboxRepository) finish(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.conn(ctx).ExecContext(ctx, finishOutboxSQL, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark outbox %s as %s: %w", id, status, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("mark outbox %s as %s: %w", id, status, err)
	} else if n == 0 {
		return fmt.Errorf("outbox message %s not found: %w", id, domain.ErrOutboxPublish)
	}
	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
