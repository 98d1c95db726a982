package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/messaging"
	"github.com/vladislavdragonenkov/fastfood/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/fastfood/internal/messaging/rabbitmq"
)

// publishers — брокеры, в которые outbox worker доставляет события.
type publishers struct {
	// events равен nil, если ни один брокер не настроен или не поднялся.
	events      domain.OutboxPublisher
	deadLetters domain.OutboxPublisher
	closers     []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// buildPublishers подключает настроенные брокеры. Недоступный брокер не
// останавливает сервис: события копятся в outbox до следующего запуска.
func buildPublishers(cfg config.Config, logger *log.Entry) *publishers {
	p := &publishers{}
	var targets []messaging.Named

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID, logger.WithField("broker", "kafka"))
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			targets = append(targets, messaging.Named{
				Name:      "kafka",
				Publisher: kafka.NewOutboxPublisher(producer, cfg.Kafka.Topic),
			})
			if cfg.Kafka.DLQTopic != "" {
				p.deadLetters = kafka.NewOutboxPublisher(producer, cfg.Kafka.DLQTopic)
			}
			p.closers = append(p.closers, namedCloser{name: "kafka producer", close: producer.Close})
			logger.WithField("brokers", cfg.Kafka.Brokers).Info("kafka producer initialized")
		}
	}

	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			logger.WithError(err).Warn("failed to connect to rabbitmq, continuing without rabbitmq")
		} else {
			publisher := rabbitmq.NewPublisher(conn, cfg.RabbitMQ.Exchange, logger.WithField("broker", "rabbitmq"))
			targets = append(targets, messaging.Named{Name: "rabbitmq", Publisher: publisher})
			p.closers = append(p.closers,
				namedCloser{name: "rabbitmq publisher", close: publisher.Close},
				namedCloser{name: "rabbitmq connection", close: conn.Close},
			)
			logger.WithField("exchange", cfg.RabbitMQ.Exchange).Info("rabbitmq publisher initialized")
		}
	}

	if fanOut := messaging.NewFanOut(targets...); fanOut.Len() > 0 {
		p.events = fanOut
	}
	return p
}

func (p *publishers) close(logger *log.Entry) {
	for _, c := range p.closers {
		if err := c.close(); err != nil {
			logger.WithError(err).Warnf("failed to close %s", c.name)
			continue
		}
		logger.Infof("%s closed", c.name)
	}
}
