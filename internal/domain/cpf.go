package domain

import (
	"encoding/json"
	"strings"
)

const cpfLength = 11

// CPF — номер налогоплательщика (11 цифр с двумя контрольными).
// Хранится только в нормализованном виде, без маски.
type CPF struct {
	number string
}

// NewCPF принимает номер с маской ddd.ddd.ddd-dd или без неё.
func NewCPF(raw string) (CPF, error) {
	digits := onlyDigits(raw)
	if len(digits) != cpfLength || allSameDigit(digits) {
		return CPF{}, newValidationError("Invalid CPF.", raw)
	}
	if digits[9] != cpfCheckDigit(digits[:9]) || digits[10] != cpfCheckDigit(digits[:10]) {
		return CPF{}, newValidationError("Invalid CPF.", raw)
	}
	return CPF{number: digits}, nil
}

// MustCPF используется в тестах и фикстурах.
func MustCPF(raw string) CPF {
	cpf, err := NewCPF(raw)
	if err != nil {
		panic(err)
	}
	return cpf
}

// cpfCheckDigit считает контрольную цифру: веса убывают от len+1 до 2.
func cpfCheckDigit(base string) byte {
	weight := len(base) + 1
	sum := 0
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * (weight - i)
	}
	rem := sum % 11
	if rem < 2 {
		return '0'
	}
	return byte('0' + 11 - rem)
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func (c CPF) String() string { return c.number }

// Masked возвращает номер в формате ddd.ddd.ddd-dd.
func (c CPF) Masked() string {
	if len(c.number) != cpfLength {
		return c.number
	}
	return c.number[:3] + "." + c.number[3:6] + "." + c.number[6:9] + "-" + c.number[9:]
}

func (c CPF) IsZero() bool { return c.number == "" }

func (c CPF) MarshalJSON() ([]byte, error) { return json.Marshal(c.number) }
