package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/fastfood/internal/service/outbox"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
)

type options struct {
	brokers     []string
	clientID    string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

type replayMessage struct {
	topic   string
	key     string
	value   []byte
	headers map[string]string
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

// replayPublisher: подмножество kafka.Producer.
type replayPublisher interface {
	Send(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

var newReplayDependencies = func(opts options) (offsetClient, partitionConsumerSource, replayPublisher, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = opts.clientID
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(opts.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	consumer := saramaConsumerAdapter{consumer: rawConsumer}

	if !opts.execute {
		return client, consumer, nil, nil
	}

	producer, err := kafka.NewProducer(opts.brokers, opts.clientID, log.WithField("component", "dlq-reprocess"))
	if err != nil {
		_ = consumer.Close()
		_ = client.Close()
		return nil, nil, nil, err
	}
	return client, consumer, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	opts, err := readOptions(os.Args[1:])
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

// readOptions берёт брокеры и топики из конфигурации сервиса; флаги их переопределяют.
func readOptions(args []string) (options, error) {
	var (
		configPath string
		brokersRaw string
		opts       options
	)

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "path to YAML config")
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: kafka.brokers from config)")
	fs.StringVar(&opts.sourceTopic, "source-topic", "", "DLQ source topic (fallback: kafka.dlq_topic)")
	fs.StringVar(&opts.targetTopic, "target-topic", "", "target topic for replay (fallback: kafka.topic)")
	fs.IntVar(&opts.limit, "limit", defaultReplayLimit, "max number of messages to scan/replay")
	fs.BoolVar(&opts.execute, "execute", false, "execute replay; default is dry-run")
	fs.BoolVar(&opts.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	fs.DurationVar(&opts.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return options{}, fmt.Errorf("load config: %w", err)
	}

	opts.brokers = parseBrokers(brokersRaw)
	if len(opts.brokers) == 0 {
		opts.brokers = cfg.Kafka.Brokers
	}
	opts.sourceTopic = firstNonEmpty(opts.sourceTopic, cfg.Kafka.DLQTopic, kafka.TopicDeadLetterQueue)
	opts.targetTopic = firstNonEmpty(opts.targetTopic, cfg.Kafka.Topic, kafka.TopicOrderEvents)
	opts.clientID = firstNonEmpty(cfg.Kafka.ClientID, "fastfood") + "-dlq-reprocess"

	switch {
	case len(opts.brokers) == 0:
		return options{}, errors.New("kafka brokers are required (-brokers or FASTFOOD_KAFKA_BROKERS)")
	case opts.sourceTopic == opts.targetTopic:
		return options{}, errors.New("source-topic and target-topic must differ")
	case opts.limit <= 0:
		return options{}, errors.New("limit must be > 0")
	case opts.idleTimeout <= 0:
		return options{}, errors.New("idle-timeout must be > 0")
	}
	return opts, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func run(ctx context.Context, opts options) error {
	log.WithFields(log.Fields{
		"source_topic": opts.sourceTopic,
		"target_topic": opts.targetTopic,
		"limit":        opts.limit,
		"execute":      opts.execute,
		"from_newest":  opts.fromNewest,
	}).Info("starting dlq replay")

	client, consumer, producer, err := newReplayDependencies(opts)
	if err != nil {
		return err
	}
	defer func() {
		if producer != nil {
			_ = producer.Close()
		}
		if consumer != nil {
			_ = consumer.Close()
		}
		if client != nil {
			_ = client.Close()
		}
	}()

	_, err = runReplay(ctx, opts, client, consumer, producer)
	return err
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

// replayer переносит письма из DLQ обратно в топик событий заказов.
// Без producer (dry-run) кандидаты только логируются.
type replayer struct {
	opts     options
	client   offsetClient
	consumer partitionConsumerSource
	producer replayPublisher
	stats    replayStats
}

func runReplay(ctx context.Context, opts options, client offsetClient, consumer partitionConsumerSource, producer replayPublisher) (replayStats, error) {
	if client == nil || consumer == nil {
		return replayStats{}, errors.New("kafka client and consumer are required")
	}
	if opts.execute && producer == nil {
		return replayStats{}, errors.New("producer is required in execute mode")
	}
	if !opts.execute {
		producer = nil
	}

	r := &replayer{opts: opts, client: client, consumer: consumer, producer: producer}
	if err := r.replayTopic(ctx); err != nil {
		return r.stats, err
	}

	mode := "dry-run"
	if r.producer != nil {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": r.stats.processed,
		"replayed":  r.stats.replayed,
		"skipped":   r.stats.skipped,
	}).Info("dlq replay finished")
	return r.stats, nil
}

func (r *replayer) remaining() int { return r.opts.limit - r.stats.processed }

func (r *replayer) replayTopic(ctx context.Context) error {
	partitions, err := r.client.Partitions(r.opts.sourceTopic)
	if err != nil {
		return fmt.Errorf("get partitions for topic %s: %w", r.opts.sourceTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", r.opts.sourceTopic).Warn("source topic has no partitions")
		return nil
	}
	slices.Sort(partitions)

	for _, partition := range partitions {
		if r.remaining() <= 0 {
			return nil
		}
		if err := r.replayPartition(ctx, partition); err != nil {
			return err
		}
	}
	return nil
}

// window возвращает смещение начала чтения и верхнюю границу (newest) партиции.
func (r *replayer) window(partition int32) (from, until int64, err error) {
	oldest, err := r.client.GetOffset(r.opts.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return 0, 0, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	until, err = r.client.GetOffset(r.opts.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return 0, 0, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	from = oldest
	if r.opts.fromNewest {
		from = max(until-int64(r.remaining()), oldest)
	}
	return from, until, nil
}

func (r *replayer) replayPartition(ctx context.Context, partition int32) error {
	from, until, err := r.window(partition)
	if err != nil || from >= until {
		return err
	}

	pc, err := r.consumer.ConsumePartition(r.opts.sourceTopic, partition, from)
	if err != nil {
		return fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.opts.idleTimeout)
	defer idle.Stop()

	for r.remaining() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle.C:
			return nil
		case cerr := <-pc.Errors():
			if cerr != nil {
				return fmt.Errorf("partition %d consumer error: %w", partition, cerr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= until {
				return nil
			}
			idle.Reset(r.opts.idleTimeout)
			if err := r.handle(ctx, msg); err != nil {
				return err
			}
			if msg.Offset+1 >= until {
				return nil
			}
		}
	}
	return nil
}

func (r *replayer) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	r.stats.processed++
	entry := log.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

	replay, err := extractReplayMessage(msg, r.opts.targetTopic)
	if err != nil {
		r.stats.skipped++
		entry.WithError(err).Warn("skip unsupported dlq message")
		return nil
	}

	if r.producer == nil {
		entry.WithFields(log.Fields{
			"target_topic": replay.topic,
			"key":          replay.key,
			"event_type":   replay.headers[kafka.HeaderEventType],
		}).Info("dlq replay candidate")
	} else if err := r.producer.Send(ctx, replay.topic, replay.key, replay.value, replay.headers); err != nil {
		return fmt.Errorf("publish replay message: %w", err)
	}
	r.stats.replayed++
	return nil
}

// extractReplayMessage восстанавливает исходное событие из dead letter outbox.
func extractReplayMessage(msg *sarama.ConsumerMessage, targetTopic string) (replayMessage, error) {
	var envelope kafka.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return replayMessage{}, fmt.Errorf("decode envelope: %w", err)
	}
	if len(envelope.Payload) == 0 {
		return replayMessage{}, errors.New("envelope has no payload")
	}

	var letter outbox.DeadLetter
	if err := json.Unmarshal(envelope.Payload, &letter); err != nil {
		return replayMessage{}, fmt.Errorf("decode dead letter: %w", err)
	}
	if len(letter.Payload) == 0 {
		return replayMessage{}, errors.New("dead letter does not contain original event payload")
	}

	replay := kafka.Envelope{
		ID:            firstNonEmpty(letter.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(letter.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(letter.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(letter.EventType, envelope.EventType),
		Payload:       letter.Payload,
		PublishedAt:   time.Now().UTC(),
	}
	encoded, err := json.Marshal(replay)
	if err != nil {
		return replayMessage{}, fmt.Errorf("encode replay envelope: %w", err)
	}

	return replayMessage{
		topic: targetTopic,
		key:   firstNonEmpty(replay.AggregateID, replay.ID),
		value: encoded,
		headers: map[string]string{
			kafka.HeaderEventType:     replay.EventType,
			kafka.HeaderAggregateType: replay.AggregateType,
			kafka.HeaderOutboxID:      replay.ID,
		},
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
