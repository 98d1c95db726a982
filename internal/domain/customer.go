package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameLength = 120

// Customer — клиент, идентифицируемый по CPF или email.
type Customer struct {
	ID        int64
	UUID      uuid.UUID
	Name      string
	CPF       CPF
	Email     Email
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCustomer создаёт клиента с новым внешним идентификатором.
func NewCustomer(name string, cpf CPF, email Email) (Customer, error) {
	now := time.Now().UTC()
	customer := Customer{
		UUID:      uuid.New(),
		Name:      strings.TrimSpace(name),
		CPF:       cpf,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := firstError(customer.Validate()); err != nil {
		return Customer{}, err
	}
	return customer, nil
}

// Validate проверяет инварианты клиента и возвращает список замечаний.
func (c *Customer) Validate() []error {
	return collect(
		assertNotNilUUID(c.UUID, "Customer uuid is required."),
		assertNotEmpty(c.Name, "Customer name is required."),
		assertLength(c.Name, 1, maxNameLength, "Customer name must have between 1 and 120 characters."),
		assertTrue(!c.CPF.IsZero(), "Customer CPF is required."),
		assertTrue(!c.Email.IsZero(), "Customer email is required."),
	)
}
