package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentGateway описывает взаимодействие с платёжным провайдером.
type PaymentGateway interface {
	// Process инициирует оплату заказа и возвращает платёж в статусе pending.
	Process(ctx context.Context, order Order) (Payment, error)
}

// UnitOfWork задаёт границу транзакции. Репозитории, вызванные с ctx из fn,
// работают в одной транзакции; ошибка fn откатывает всё.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID uuid.UUID) ([]TimelineEvent, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
