package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestAssertions(t *testing.T) {
	type status string

	failing := map[string]error{
		"empty":        assertNotEmpty("  ", "name required"),
		"too short":    assertLength("ab", 3, 10, "bad length"),
		"too long":     assertLength("ãããã", 1, 3, "bad length"),
		"not positive": assertPositive(0, "must be positive"),
		"negative":     assertNonNegative(-1, "must not be negative"),
		"nil uuid":     assertNotNilUUID(uuid.Nil, "uuid required"),
		"empty slice":  assertNotEmptySlice([]int{}, "items required"),
		"not one of":   assertOneOf(status("x"), []status{"a", "b"}, "bad status"),
		"false":        assertTrue(false, "condition"),
	}
	for name, err := range failing {
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}

	passing := []error{
		assertNotEmpty("x", "m"),
		assertLength("ããã", 1, 3, "m"),
		assertPositive(1, "m"),
		assertNonNegative(0, "m"),
		assertNotNilUUID(uuid.New(), "m"),
		assertNotEmptySlice([]string{"a"}, "m"),
		assertOneOf(status("b"), []status{"a", "b"}, "m"),
		assertTrue(true, "m"),
	}
	if errs := collect(passing...); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestCollectAndFirstError(t *testing.T) {
	first := newValidationError("first", "")
	errs := collect(nil, first, nil, newValidationError("second", ""))
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if got := firstError(errs); got != first {
		t.Fatalf("expected first error, got %v", got)
	}
	if firstError(nil) != nil {
		t.Fatal("expected nil for empty list")
	}
}
