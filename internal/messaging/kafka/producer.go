package kafka

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const producerRetries = 5

// Producer отправляет сообщения синхронно: Send возвращается после подтверждения всех реплик.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
}

// NewProducer подключается к брокерам с идемпотентной доставкой.
func NewProducer(brokers []string, clientID string, logger *log.Entry) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(brokers, producerConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("kafka producer %v: %w", brokers, err)
	}
	return newProducer(sp, logger), nil
}

// producerConfig требует acks=all и одну in-flight заявку, без этого sarama отвергает Idempotent.
func producerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = producerRetries
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

func newProducer(sp sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{sync: sp, logger: logger}
}

// Send публикует value в topic. Заголовки идут в порядке имён.
func (p *Producer) Send(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := p.logger.WithFields(log.Fields{"topic": topic, "key": key})
	partition, offset, err := p.sync.SendMessage(buildMessage(topic, key, value, headers))
	if err != nil {
		entry.WithError(err).Error("kafka send failed")
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	entry.WithFields(log.Fields{"partition": partition, "offset": offset}).Debug("kafka message sent")
	return nil
}

func buildMessage(topic, key string, value []byte, headers map[string]string) *sarama.ProducerMessage {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now().UTC(),
		Headers:   make([]sarama.RecordHeader, 0, len(names)),
	}
	for _, name := range names {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(name), Value: []byte(headers[name])})
	}
	return msg
}

// Close дожидается отправки буфера и закрывает соединения.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
