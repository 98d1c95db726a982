package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// timelineRepositoryInMemory хранит события в памяти (для разработки/тестов).
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	gate   *sync.Mutex
	events map[uuid.UUID][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return newTimelineRepository()
}

func newTimelineRepository() *timelineRepositoryInMemory {
	return &timelineRepositoryInMemory{events: make(map[uuid.UUID][]domain.TimelineEvent)}
}

// Append добавляет событие в хранилище.
func (r *timelineRepositoryInMemory) Append(ctx context.Context, event domain.TimelineEvent) error {
	defer enterWrite(ctx, r.gate)()
	r.mu.Lock()
	defer r.mu.Unlock()

	events := append(r.events[event.OrderUUID], event)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Occurred.Before(events[j].Occurred)
	})
	r.events[event.OrderUUID] = events
	return nil
}

// List возвращает события заказа в хронологическом порядке.
func (r *timelineRepositoryInMemory) List(_ context.Context, orderID uuid.UUID) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[orderID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

func (r *timelineRepositoryInMemory) snapshot() func() {
	r.mu.RLock()
	events := make(map[uuid.UUID][]domain.TimelineEvent, len(r.events))
	for k, v := range r.events {
		events[k] = append([]domain.TimelineEvent(nil), v...)
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = events
	}
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
