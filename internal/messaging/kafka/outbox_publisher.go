package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

var errPublisherNotReady = errors.New("kafka outbox publisher is not initialized")

// OutboxTopicPublisher пишет outbox-сообщения в один топик. Ключ партиционирования
// берётся из id агрегата, так что события заказа читаются в порядке записи.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher без topic публикует в TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

func (p *OutboxTopicPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotReady
	}
	value, err := json.Marshal(newEnvelope(msg))
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", msg.EventType, err)
	}
	return p.producer.Send(ctx, p.topic, partitionKey(msg), value, headersOf(msg))
}

// partitionKey падает на id сообщения, если агрегат не указан.
func partitionKey(msg domain.OutboxMessage) string {
	if msg.AggregateID != "" {
		return msg.AggregateID
	}
	return msg.ID
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
