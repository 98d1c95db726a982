package domain

import (
	"errors"
	"testing"
)

var allOrderStatuses = []OrderStatus{
	OrderStatusPaymentPending,
	OrderStatusReceived,
	OrderStatusProcessing,
	OrderStatusReady,
	OrderStatusCompleted,
}

var allPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusApproved,
	PaymentStatusRejected,
	PaymentStatusFailed,
}

func TestOrderStatus_TransitionTable(t *testing.T) {
	allowed := map[OrderStatus]OrderStatus{
		OrderStatusPaymentPending: OrderStatusReceived,
		OrderStatusReceived:       OrderStatusProcessing,
		OrderStatusProcessing:     OrderStatusReady,
		OrderStatusReady:          OrderStatusCompleted,
	}

	// Проверяем все пары (s, t): переход разрешён только по линейной цепочке.
	for _, from := range allOrderStatuses {
		for _, to := range allOrderStatuses {
			next, ok := allowed[from]
			want := ok && next == to
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}

	if !OrderStatusCompleted.IsTerminal() {
		t.Error("completed must be terminal")
	}
	if OrderStatusReady.IsTerminal() {
		t.Error("ready must not be terminal")
	}
}

func TestPaymentStatus_TransitionTable(t *testing.T) {
	allowed := map[PaymentStatus][]PaymentStatus{
		PaymentStatusPending:    {PaymentStatusProcessing},
		PaymentStatusProcessing: {PaymentStatusApproved, PaymentStatusRejected, PaymentStatusFailed},
		PaymentStatusFailed:     {PaymentStatusProcessing},
	}

	for _, from := range allPaymentStatuses {
		for _, to := range allPaymentStatuses {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}

	for _, terminal := range []PaymentStatus{PaymentStatusApproved, PaymentStatusRejected} {
		if !terminal.IsTerminal() {
			t.Errorf("%s must be terminal", terminal)
		}
	}
	if PaymentStatusFailed.IsTerminal() {
		t.Error("failed allows retry and must not be terminal")
	}
}

func TestParseStatuses(t *testing.T) {
	status, err := ParseOrderStatus("RECEIVED")
	if err != nil || status != OrderStatusReceived {
		t.Fatalf("expected received, got %s (%v)", status, err)
	}

	_, err = ParseOrderStatus("canceled")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	payment, err := ParsePaymentStatus("approved")
	if err != nil || payment != PaymentStatusApproved {
		t.Fatalf("expected approved, got %s (%v)", payment, err)
	}
	if !payment.IsWebhookResult() || PaymentStatusPending.IsWebhookResult() {
		t.Fatal("unexpected webhook classification")
	}

	_, err = ParsePaymentStatus("refunded")
	if err == nil {
		t.Fatal("expected error for unknown payment status")
	}
}

func TestAllowedTransitions_ReturnsCopy(t *testing.T) {
	next := OrderStatusPaymentPending.AllowedTransitions()
	next[0] = OrderStatusCompleted

	if !OrderStatusPaymentPending.CanTransitionTo(OrderStatusReceived) {
		t.Fatal("transition table must not be mutated through AllowedTransitions")
	}
}
