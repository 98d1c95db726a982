// Package messaging объединяет брокерные publisher'ы outbox.
package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// Named — publisher с именем для сообщений об ошибках.
type Named struct {
	Name      string
	Publisher domain.OutboxPublisher
}

// FanOut публикует сообщение во все брокеры. Ошибка любого брокера
// возвращается воркеру, и сообщение будет отправлено повторно всем;
// получатели дедуплицируют по id события.
type FanOut struct {
	targets []Named
}

func NewFanOut(targets ...Named) *FanOut {
	filtered := make([]Named, 0, len(targets))
	for _, t := range targets {
		if t.Publisher != nil {
			filtered = append(filtered, t)
		}
	}
	return &FanOut{targets: filtered}
}

// Len возвращает число подключённых брокеров.
func (f *FanOut) Len() int { return len(f.targets) }

func (f *FanOut) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Publisher.Publish(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}

var _ domain.OutboxPublisher = (*FanOut)(nil)
