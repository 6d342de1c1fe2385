package session

import (
	"testing"
	"time"
)

func TestPaymentApplyDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := NewPaymentState()
	p.Apply(PaymentPaid, "", "", "Alice", now)

	if p.Status != PaymentPaid {
		t.Fatalf("status=%q want paid", p.Status)
	}
	if p.Method != MethodTransfer {
		t.Fatalf("method=%q want transfer default", p.Method)
	}
	if p.PaidBy != "Alice" {
		t.Fatalf("paid_by=%q want acting participant", p.PaidBy)
	}
	if !p.PaidAt.Equal(now) {
		t.Fatalf("paid_at=%v want %v", p.PaidAt, now)
	}
	if p.ConfirmedByHost {
		t.Fatal("Apply must never set confirmed_by_host")
	}
}

func TestPaymentApplyPendingKeepsPaidAtUnset(t *testing.T) {
	t.Parallel()

	p := NewPaymentState()
	p.Apply(PaymentPending, MethodTransfer, "", "Alice", time.Now())
	if !p.PaidAt.IsZero() {
		t.Fatalf("paid_at=%v want zero while pending", p.PaidAt)
	}
}

func TestPaymentConfirmIsOneWay(t *testing.T) {
	t.Parallel()

	p := NewPaymentState()
	p.Confirm()
	if !p.ConfirmedByHost {
		t.Fatal("Confirm did not set confirmed_by_host")
	}

	// A later status correction keeps the confirmation.
	p.Apply(PaymentCash, MethodCash, "Bob", "Bob", time.Now())
	if !p.ConfirmedByHost {
		t.Fatal("confirmed_by_host reverted after Apply")
	}
}

func TestTreatedByOverwritesPaid(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := NewPaymentState()
	p.Apply(PaymentPaid, MethodTransfer, "Bob", "Bob", now.Add(-time.Hour))

	p = TreatedBy("Hana", now)

	if p.Status != PaymentTreated || p.Method != MethodTreated {
		t.Fatalf("got {%s %s} want {treated treated}", p.Status, p.Method)
	}
	if p.PaidBy != "Hana" {
		t.Fatalf("paid_by=%q want host name", p.PaidBy)
	}
	if !p.ConfirmedByHost {
		t.Fatal("treat must confirm by host")
	}
	if !p.PaidAt.Equal(now) {
		t.Fatalf("paid_at=%v want %v", p.PaidAt, now)
	}
}

func TestSettledDerivesLegacyPaidFlag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status PaymentStatus
		want   bool
	}{
		{status: PaymentPending, want: false},
		{status: PaymentPaid, want: true},
		{status: PaymentCash, want: true},
		{status: PaymentTreated, want: true},
	}

	for _, tc := range cases {
		p := PaymentState{Status: tc.status}
		if got := p.Settled(); got != tc.want {
			t.Fatalf("Settled(%s)=%v want %v", tc.status, got, tc.want)
		}
	}
}

func TestValidPaymentEnums(t *testing.T) {
	t.Parallel()

	if ValidPaymentStatus("refunded") {
		t.Fatal("refunded accepted as status")
	}
	if ValidPaymentMethod("check") {
		t.Fatal("check accepted as method")
	}
	if !ValidPaymentStatus(PaymentCash) || !ValidPaymentMethod(MethodTreated) {
		t.Fatal("known enum rejected")
	}
}
