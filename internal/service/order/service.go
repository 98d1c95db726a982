package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/service/journal"
)

// activeStatuses задаёт и фильтр, и порядок очереди кухни.
var activeStatuses = []domain.OrderStatus{
	domain.OrderStatusReady,
	domain.OrderStatusProcessing,
	domain.OrderStatusReceived,
}

// Service управляет статусами заказов.
type Service struct {
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	uow      domain.UnitOfWork
	journal  *journal.Recorder
	logger   *log.Entry
}

func NewService(
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	uow domain.UnitOfWork,
	recorder *journal.Recorder,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		orders:   orders,
		timeline: timeline,
		uow:      uow,
		journal:  recorder,
		logger:   logger,
	}
}

// UpdateStatus меняет статус заказа по запросу оператора.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target domain.OrderStatus) (domain.Order, error) {
	return s.Transition(ctx, id, target, "")
}

// Transition применяет переход, сохраняет его и пишет событие в одной единице работы.
// Вызов из чужой единицы работы присоединяется к ней.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, target domain.OrderStatus, reason string) (domain.Order, error) {
	if !target.IsValid() {
		return domain.Order{}, &domain.ValidationError{
			Message: fmt.Sprintf("invalid enum value: %q", string(target)),
			Value:   string(target),
		}
	}

	var updated domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByUUID(ctx, id)
		if err != nil {
			return err
		}
		previous := order.Status
		if err := order.TransitionTo(target); err != nil {
			return err
		}
		if updated, err = s.orders.UpdateStatus(ctx, order.UUID, order.Status, order.UpdatedAt); err != nil {
			return err
		}
		return s.journal.OrderStatusChanged(ctx, updated, previous, reason)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_uuid": updated.UUID,
		"status":     updated.Status,
	}).Info("order status updated")
	return updated, nil
}

// List возвращает все заказы, старые первыми.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListAll(ctx)
}

// ListActive возвращает очередь кухни: ready, затем processing, затем received.
func (s *Service) ListActive(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListByStatuses(ctx, activeStatuses)
}

// Timeline возвращает журнал событий существующего заказа.
func (s *Service) Timeline(ctx context.Context, id uuid.UUID) ([]domain.TimelineEvent, error) {
	if _, err := s.orders.GetByUUID(ctx, id); err != nil {
		return nil, err
	}
	return s.timeline.List(ctx, id)
}
