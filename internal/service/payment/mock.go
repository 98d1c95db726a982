package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
type MockGateway struct {
	mu    sync.Mutex
	Err   error
	calls int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Process возвращает заранее настроенную ошибку или платёж pending и считает вызовы.
func (m *MockGateway) Process(_ context.Context, order domain.Order) (domain.Payment, error) {
	m.mu.Lock()
	m.calls++
	err := m.Err
	m.mu.Unlock()

	if err != nil {
		return domain.Payment{}, err
	}
	return domain.NewPayment(order, map[string]string{"gateway": "mock"})
}

func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
