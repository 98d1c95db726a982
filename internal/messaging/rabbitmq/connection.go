// Package rabbitmq публикует события outbox в topic exchange RabbitMQ.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection — соединение, из которого открываются каналы.
type Connection interface {
	Channel() (Channel, error)
	Close() error
}

// Channel — подмножество *amqp.Channel, нужное publisher'у.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConnection struct {
	mu     sync.RWMutex
	url    string
	conn   *amqp.Connection
	closed bool
}

// Dial открывает соединение по AMQP URL.
func Dial(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return &amqpConnection{url: url, conn: conn}, nil
}

// Channel открывает канал и один раз переподключается, если брокер закрыл соединение.
func (c *amqpConnection) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("connection is closed")
	}
	if c.conn.IsClosed() {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			return nil, fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
		}
		c.conn = conn
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

func (c *amqpConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}
