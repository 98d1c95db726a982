package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

type outboxState uint8

const (
	outboxPending outboxState = iota
	outboxSent
	outboxFailed
)

const defaultOutboxPull = 100

type outboxRecord struct {
	msg       domain.OutboxMessage
	state     outboxState
	attempts  int
	createdAt time.Time
	updatedAt time.Time
}

// outboxRepositoryInMemory хранит журнал в порядке постановки и индекс id → запись.
type outboxRepositoryInMemory struct {
	mu      sync.RWMutex
	gate    *sync.Mutex
	journal []*outboxRecord
	index   map[string]*outboxRecord
}

// NewOutboxRepository создаёт in-memory реализацию outbox.
func NewOutboxRepository() *outboxRepositoryInMemory {
	return &outboxRepositoryInMemory{index: make(map[string]*outboxRecord)}
}

// Enqueue ставит событие в очередь; пустой ID заменяется на UUID.
func (r *outboxRepositoryInMemory) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	defer enterWrite(ctx, r.gate)()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Payload = append([]byte(nil), msg.Payload...)
	now := time.Now().UTC()
	rec := &outboxRecord{msg: msg, createdAt: now, updatedAt: now}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.journal = append(r.journal, rec)
	r.index[msg.ID] = rec
	return msg, nil
}

func (r *outboxRepositoryInMemory) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxPull
	}
	var out []domain.OutboxMessage
	r.eachPending(func(rec *outboxRecord) bool {
		out = append(out, rec.msg)
		return len(out) < limit
	})
	return out, nil
}

// Stats считает backlog для метрик воркера.
func (r *outboxRepositoryInMemory) Stats(_ context.Context) (domain.OutboxStats, error) {
	var stats domain.OutboxStats
	r.eachPending(func(rec *outboxRecord) bool {
		if stats.PendingCount == 0 {
			stats.OldestPendingAt = rec.createdAt
		}
		stats.PendingCount++
		return true
	})
	return stats, nil
}

func (r *outboxRepositoryInMemory) MarkSent(ctx context.Context, id string) error {
	defer enterWrite(ctx, r.gate)()
	return r.finish(id, outboxSent)
}

func (r *outboxRepositoryInMemory) MarkFailed(ctx context.Context, id string) error {
	defer enterWrite(ctx, r.gate)()
	return r.finish(id, outboxFailed)
}

func (r *outboxRepositoryInMemory) finish(id string, state outboxState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.index[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	rec.state = state
	rec.attempts++
	rec.updatedAt = time.Now().UTC()
	return nil
}

// AllPending возвращает все неотправленные сообщения; нужен тестам.
func (r *outboxRepositoryInMemory) AllPending() []domain.OutboxMessage {
	msgs, _ := r.PullPending(context.Background(), math.MaxInt)
	return msgs
}

// eachPending обходит pending-записи в порядке постановки, пока fn возвращает true.
func (r *outboxRepositoryInMemory) eachPending(fn func(*outboxRecord) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.journal {
		if rec.state != outboxPending {
			continue
		}
		if !fn(rec) {
			return
		}
	}
}

func (r *outboxRepositoryInMemory) snapshot() func() {
	r.mu.RLock()
	journal := make([]*outboxRecord, len(r.journal))
	index := make(map[string]*outboxRecord, len(r.index))
	for i, rec := range r.journal {
		cp := *rec
		journal[i] = &cp
		index[cp.msg.ID] = &cp
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.journal = journal
		r.index = index
	}
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
