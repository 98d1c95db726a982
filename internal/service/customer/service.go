package customer

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// CreateInput — данные регистрации клиента в сыром виде.
type CreateInput struct {
	Name  string
	CPF   string
	Email string
}

// Service реализует сценарии работы с клиентами.
type Service struct {
	customers domain.CustomerRepository
	logger    *log.Entry
}

func NewService(customers domain.CustomerRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "customer-service")
	}
	return &Service{customers: customers, logger: logger}
}

// Create регистрирует клиента. CPF и email уникальны.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Customer, error) {
	cpf, err := domain.NewCPF(in.CPF)
	if err != nil {
		return domain.Customer{}, err
	}
	email, err := domain.NewEmail(in.Email)
	if err != nil {
		return domain.Customer{}, err
	}
	customer, err := domain.NewCustomer(in.Name, cpf, email)
	if err != nil {
		return domain.Customer{}, err
	}

	exists, err := s.customers.Exists(ctx, cpf, email)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("check customer exists: %w", err)
	}
	if exists {
		return domain.Customer{}, domain.ErrCustomerExists
	}

	saved, err := s.customers.Add(ctx, customer)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Customer{}, domain.ErrCustomerExists
		}
		return domain.Customer{}, fmt.Errorf("add customer: %w", err)
	}

	s.logger.WithField("customer_uuid", saved.UUID).Info("customer registered")
	return saved, nil
}

// GetByCPF принимает CPF в любом формате (с маской или без).
func (s *Service) GetByCPF(ctx context.Context, raw string) (domain.Customer, error) {
	cpf, err := domain.NewCPF(raw)
	if err != nil {
		return domain.Customer{}, err
	}
	return s.customers.GetByCPF(ctx, cpf)
}
