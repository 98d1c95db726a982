package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/metrics"
	"github.com/vladislavdragonenkov/fastfood/internal/service/journal"
)

// OrderTransitioner — часть сервиса заказов, нужная для каскада approved → received.
type OrderTransitioner interface {
	Transition(ctx context.Context, id uuid.UUID, target domain.OrderStatus, reason string) (domain.Order, error)
}

// Service обрабатывает статусы платежей.
type Service struct {
	payments domain.PaymentRepository
	orders   OrderTransitioner
	uow      domain.UnitOfWork
	journal  *journal.Recorder
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
}

func NewService(
	payments domain.PaymentRepository,
	orders OrderTransitioner,
	uow domain.UnitOfWork,
	recorder *journal.Recorder,
	m *metrics.OrderMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "payment-service")
	}
	return &Service{
		payments: payments,
		orders:   orders,
		uow:      uow,
		journal:  recorder,
		metrics:  m,
		logger:   logger,
	}
}

// Confirm применяет итог оплаты из webhook. Платёж pending или failed сначала
// переводится в processing. При approved заказ переходит в received в той же транзакции.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, rawStatus string) (domain.Payment, error) {
	target, err := domain.ParsePaymentStatus(rawStatus)
	if err != nil {
		return domain.Payment{}, err
	}
	if !target.IsWebhookResult() {
		return domain.Payment{}, &domain.ValidationError{
			Message: fmt.Sprintf("Payment result must be one of approved, rejected, failed; got %q", rawStatus),
			Value:   rawStatus,
		}
	}

	var updated domain.Payment
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		payment, err := s.payments.GetByUUID(ctx, id)
		if err != nil {
			return err
		}
		previous := payment.Status
		if payment.Status.CanTransitionTo(domain.PaymentStatusProcessing) {
			if err := payment.TransitionTo(domain.PaymentStatusProcessing); err != nil {
				return err
			}
		}
		if err := payment.TransitionTo(target); err != nil {
			return err
		}

		if updated, err = s.payments.UpdateStatus(ctx, payment.UUID, payment.Status, payment.UpdatedAt); err != nil {
			return err
		}
		if err := s.journal.PaymentStatusChanged(ctx, updated, previous, "payment webhook"); err != nil {
			return err
		}

		if updated.Status == domain.PaymentStatusApproved {
			if _, err := s.orders.Transition(ctx, updated.OrderUUID, domain.OrderStatusReceived, "payment approved"); err != nil {
				return fmt.Errorf("cascade order status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.PaymentResult(string(updated.Status))
	s.logger.WithFields(log.Fields{
		"payment_uuid": updated.UUID,
		"order_uuid":   updated.OrderUUID,
		"status":       updated.Status,
	}).Info("payment result applied")
	return updated, nil
}

// GetStatus возвращает платёж заказа.
func (s *Service) GetStatus(ctx context.Context, orderID uuid.UUID) (domain.Payment, error) {
	return s.payments.GetByOrderUUID(ctx, orderID)
}
