package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// DeadLetter — полезная нагрузка события, которое не удалось доставить.
// Исходное событие лежит в Payload без изменений.
type DeadLetter struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	FailedAt      time.Time       `json:"failed_at"`
}

func newDeadLetter(msg domain.OutboxMessage, cause error, at time.Time) DeadLetter {
	return DeadLetter{
		OutboxID:      msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
		PublishError:  cause.Error(),
		FailedAt:      at.UTC(),
	}
}

// deadLetterMessage заворачивает письмо в outbox-сообщение с теми же идентификаторами,
// чтобы publisher выставил прежние заголовки и ключ партиционирования.
func deadLetterMessage(msg domain.OutboxMessage, cause error, at time.Time) (domain.OutboxMessage, error) {
	payload, err := json.Marshal(newDeadLetter(msg, cause, at))
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("marshal dead letter: %w", err)
	}
	wrapped := msg
	wrapped.Payload = payload
	return wrapped, nil
}

func (w *Worker) publishDeadLetter(ctx context.Context, msg domain.OutboxMessage, publishErr error) error {
	if w.opts.deadLetters == nil {
		return nil
	}
	wrapped, err := deadLetterMessage(msg, publishErr, time.Now())
	if err != nil {
		return err
	}
	if err := w.opts.deadLetters.Publish(ctx, wrapped); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}
