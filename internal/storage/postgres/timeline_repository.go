package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

const (
	appendTimelineSQL = `
		INSERT INTO timeline_events (order_uuid, type, reason, occurred)
		VALUES ($1, $2, $3, $4)`

	// id разводит события с одинаковым occurred в порядке записи.
	orderTimelineSQL = `
		SELECT order_uuid, type, reason, occurred
		FROM timeline_events
		WHERE order_uuid = $1
		ORDER BY occurred, id`
)

type timelineRepository struct {
	store *Store
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{store: store}
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	occurred := event.Occurred
	if occurred.IsZero() {
		occurred = time.Now()
	}
	_, err := r.store.conn(ctx).ExecContext(ctx, appendTimelineSQL, event.OrderUUID, event.Type, event.Reason, occurred.UTC())
	if err != nil {
		return fmt.Errorf("append %s to order %s: %w", event.Type, event.OrderUUID, err)
	}
	return nil
}

func (r *timelineRepository) List(ctx context.Context, orderID uuid.UUID) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.conn(ctx).QueryContext(ctx, orderTimelineSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("timeline of order %s: %w", orderID, err)
	}
	defer rows.Close()

	events := []domain.TimelineEvent{}
	for rows.Next() {
		var e domain.TimelineEvent
		if err := rows.Scan(&e.OrderUUID, &e.Type, &e.Reason, &e.Occurred); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		e.Occurred = e.Occurred.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
