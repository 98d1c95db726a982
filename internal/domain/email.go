package domain

import (
	"encoding/json"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email — адрес вида local@domain.tld.
type Email struct {
	address string
}

func NewEmail(raw string) (Email, error) {
	address := strings.TrimSpace(raw)
	if !emailPattern.MatchString(address) {
		return Email{}, newValidationError("Invalid email.", raw)
	}
	return Email{address: address}, nil
}

// MustEmail используется в тестах и фикстурах.
func MustEmail(raw string) Email {
	email, err := NewEmail(raw)
	if err != nil {
		panic(err)
	}
	return email
}

func (e Email) String() string { return e.address }

func (e Email) IsZero() bool { return e.address == "" }

func (e Email) MarshalJSON() ([]byte, error) { return json.Marshal(e.address) }
