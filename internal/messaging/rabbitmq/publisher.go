package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// DefaultExchange — durable topic exchange для событий заказов и платежей.
const DefaultExchange = "fastfood.events"

// Publisher отправляет события с routing key, равным типу события,
// например order.status_changed.
type Publisher struct {
	conn     Connection
	exchange string
	logger   *log.Entry

	mu       sync.Mutex
	ch       Channel
	declared bool
}

func NewPublisher(conn Connection, exchange string, logger *log.Entry) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = log.WithField("component", "rabbitmq-publisher")
	}
	return &Publisher{conn: conn, exchange: exchange, logger: logger}
}

type message struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

func (p *Publisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	if p == nil || p.conn == nil {
		return errors.New("rabbitmq publisher is not initialized")
	}

	body, err := json.Marshal(message{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, p.exchange, msg.EventType, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    msg.ID,
		Type:         msg.EventType,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		// Канал после ошибки публикации непригоден; следующий вызов откроет новый.
		p.resetLocked()
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"exchange":    p.exchange,
		"routing_key": msg.EventType,
		"outbox_id":   msg.ID,
	}).Debug("message sent to rabbitmq")
	return nil
}

func (p *Publisher) channelLocked() (Channel, error) {
	if p.ch != nil && p.declared {
		return p.ch, nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	p.ch, p.declared = ch, true
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	p.ch, p.declared = nil, false
}

// Close закрывает канал publisher'а; соединением владеет вызывающий.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}

var _ domain.OutboxPublisher = (*Publisher)(nil)
