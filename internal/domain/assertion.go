package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Набор примитивов AssertionConcern. Каждый возвращает nil или *ValidationError,
// сущности собирают результаты в Validate().

func assertNotEmpty(value, message string) error {
	if strings.TrimSpace(value) == "" {
		return newValidationError(message, value)
	}
	return nil
}

func assertLength(value string, min, max int, message string) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return newValidationError(message, value)
	}
	return nil
}

func assertPositive(value int64, message string) error {
	if value <= 0 {
		return newValidationError(message, strconv.FormatInt(value, 10))
	}
	return nil
}

func assertNonNegative(value int64, message string) error {
	if value < 0 {
		return newValidationError(message, strconv.FormatInt(value, 10))
	}
	return nil
}

func assertNotNilUUID(id uuid.UUID, message string) error {
	if id == uuid.Nil {
		return newValidationError(message, "")
	}
	return nil
}

func assertNotEmptySlice[T any](values []T, message string) error {
	if len(values) == 0 {
		return newValidationError(message, "")
	}
	return nil
}

func assertOneOf[T ~string](value T, allowed []T, message string) error {
	for _, candidate := range allowed {
		if candidate == value {
			return nil
		}
	}
	return newValidationError(message, string(value))
}

func assertTrue(condition bool, message string) error {
	if !condition {
		return newValidationError(message, "")
	}
	return nil
}

// collect отбрасывает nil-результаты проверок.
func collect(results ...error) []error {
	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// firstError превращает список замечаний в одну ошибку для конструкторов.
func firstError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}
