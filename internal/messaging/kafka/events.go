package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

const (
	TopicOrderEvents = "fastfood.order.events"
	// TopicDeadLetterQueue получает события, которые не удалось доставить.
	TopicDeadLetterQueue = "fastfood.dlq"
)

// Заголовки сообщения дублируют поля конверта для маршрутизации без разбора JSON.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)

// Envelope — конверт события в топике.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

func newEnvelope(msg domain.OutboxMessage) Envelope {
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
		PublishedAt:   time.Now().UTC(),
	}
}

func headersOf(msg domain.OutboxMessage) map[string]string {
	return map[string]string{
		HeaderEventType:     msg.EventType,
		HeaderAggregateType: msg.AggregateType,
		HeaderOutboxID:      msg.ID,
	}
}
