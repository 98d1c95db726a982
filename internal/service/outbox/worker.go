// Package outbox доставляет события из transactional outbox во внешние брокеры.
package outbox

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/metrics"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

type workerOptions struct {
	logger         *log.Entry
	deadLetters    domain.OutboxPublisher
	metrics        *metrics.OutboxMetrics
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*workerOptions)

func WithLogger(logger *log.Entry) Option {
	return func(opts *workerOptions) { opts.logger = logger }
}

// WithDeadLetters задаёт publisher, куда уходит событие после исчерпания попыток.
func WithDeadLetters(publisher domain.OutboxPublisher) Option {
	return func(opts *workerOptions) { opts.deadLetters = publisher }
}

func WithMetrics(m *metrics.OutboxMetrics) Option {
	return func(opts *workerOptions) { opts.metrics = m }
}

func WithPollInterval(interval time.Duration) Option {
	return func(opts *workerOptions) { opts.pollInterval = interval }
}

func WithBatchSize(size int) Option {
	return func(opts *workerOptions) { opts.batchSize = size }
}

// WithMaxAttempts задаёт число попыток публикации перед пометкой failed.
func WithMaxAttempts(attempts int) Option {
	return func(opts *workerOptions) { opts.maxAttempts = attempts }
}

// WithRetryBaseDelay задаёт первую задержку; дальше она удваивается.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *workerOptions) { opts.retryBaseDelay = delay }
}

// Worker вычитывает pending-сообщения и публикует их.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	opts      workerOptions
}

func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	opts := workerOptions{
		pollInterval:   defaultPollInterval,
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.logger == nil {
		opts.logger = log.WithField("component", "outbox-worker")
	}
	if opts.pollInterval <= 0 {
		opts.pollInterval = defaultPollInterval
	}
	if opts.batchSize <= 0 {
		opts.batchSize = defaultBatchSize
	}
	if opts.maxAttempts <= 0 {
		opts.maxAttempts = defaultMaxAttempts
	}
	if opts.retryBaseDelay < 0 {
		opts.retryBaseDelay = 0
	}

	return &Worker{repo: repo, publisher: publisher, opts: opts}
}

// Run опрашивает outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.opts.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.opts.pollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один цикл и возвращает число доставленных сообщений.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	defer w.refreshBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.opts.batchSize)
	if err != nil {
		w.opts.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return 0
	}

	sent := 0
	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		if w.deliver(ctx, msg) {
			sent++
		}
	}
	return sent
}

// deliver публикует одно сообщение и фиксирует итог в репозитории.
// Исчерпавшее попытки сообщение уходит в DLQ и помечается failed.
func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) bool {
	entry := w.opts.logger.WithFields(log.Fields{
		"outbox_id":    msg.ID,
		"event_type":   msg.EventType,
		"aggregate_id": msg.AggregateID,
	})

	publishErr := w.publishWithRetry(ctx, msg)
	if publishErr == nil {
		if err := w.repo.MarkSent(ctx, msg.ID); err != nil {
			entry.WithError(err).Warn("failed to mark outbox message as sent")
			return false
		}
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	entry.WithError(publishErr).Error("outbox publish failed after retries")
	w.opts.metrics.Attempt("failed")
	if err := w.publishDeadLetter(ctx, msg, publishErr); err != nil {
		entry.WithError(err).Warn("failed to publish dead letter")
		w.opts.metrics.Attempt("dlq_failed")
	}
	if err := w.repo.MarkFailed(ctx, msg.ID); err != nil {
		entry.WithError(err).Warn("failed to mark outbox message as failed")
	}
	return false
}

func (w *Worker) publishWithRetry(ctx context.Context, msg domain.OutboxMessage) error {
	var lastErr error
	for attempt := 1; attempt <= w.opts.maxAttempts; attempt++ {
		err := w.publisher.Publish(ctx, msg)
		if err == nil {
			w.opts.metrics.Attempt("sent")
			return nil
		}
		lastErr = err
		w.opts.metrics.Attempt("retry_error")

		if attempt == w.opts.maxAttempts {
			break
		}
		delay := backoff(w.opts.retryBaseDelay, attempt)
		if delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %w", w.opts.maxAttempts, lastErr)
}

func (w *Worker) refreshBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(context.WithoutCancel(ctx))
	if err != nil {
		w.opts.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}
	w.opts.metrics.Backlog(stats.PendingCount, stats.OldestPendingAt)
}

// backoff удваивает base на каждой следующей попытке без переполнения.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	const maxDuration = time.Duration(1<<63 - 1)
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}
