package session

import "time"

// PaymentStatus is the settlement status of one participant order.
type PaymentStatus string

const (
	// PaymentPending means the participant still owes their share.
	PaymentPending PaymentStatus = "pending"
	// PaymentPaid means the participant claims a transfer was made.
	PaymentPaid PaymentStatus = "paid"
	// PaymentCash means the participant settles in cash.
	PaymentCash PaymentStatus = "cash"
	// PaymentTreated means the host covers this participant; settlement is
	// final regardless of the item total.
	PaymentTreated PaymentStatus = "treated"
)

// PaymentMethod describes how a non-pending settlement was effected.
type PaymentMethod string

const (
	MethodTransfer PaymentMethod = "transfer"
	MethodCash     PaymentMethod = "cash"
	MethodTreated  PaymentMethod = "treated"
)

// ValidPaymentStatus reports whether s is a known settlement status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentCash, PaymentTreated:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is a known settlement method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodTransfer, MethodCash, MethodTreated:
		return true
	}
	return false
}

// PaymentState is the settlement sub-state of one participant order.
//
// ConfirmedByHost is an independent overlay with a single allowed transition
// false -> true. It is set only by an explicit host confirmation or as a
// side effect of a treat.
type PaymentState struct {
	Status          PaymentStatus `json:"status"`
	Method          PaymentMethod `json:"method"`
	PaidBy          string        `json:"paid_by,omitempty"`
	ConfirmedByHost bool          `json:"confirmed_by_host"`
	PaidAt          time.Time     `json:"paid_at,omitempty"`
}

// NewPaymentState returns the initial settlement state for a fresh order.
func NewPaymentState() PaymentState {
	return PaymentState{Status: PaymentPending, Method: MethodTransfer}
}

// Settled reports whether the status has left pending. This is the single
// source of truth for the legacy "paid" boolean at wire boundaries.
func (p PaymentState) Settled() bool {
	return p.Status != PaymentPending && p.Status != ""
}

// Apply records a status change.
//
// Method defaults to transfer and PaidBy to actorName when omitted. PaidAt is
// stamped whenever the new status is not pending. ConfirmedByHost is never
// touched here: confirmation is a separate host action.
func (p *PaymentState) Apply(status PaymentStatus, method PaymentMethod, paidBy, actorName string, now time.Time) {
	if method == "" {
		method = MethodTransfer
	}
	if paidBy == "" {
		paidBy = actorName
	}

	p.Status = status
	p.Method = method
	p.PaidBy = paidBy
	if status != PaymentPending {
		p.PaidAt = now
	}
}

// Confirm records the host acknowledgment. One-way: it never reverts.
func (p *PaymentState) Confirm() {
	p.ConfirmedByHost = true
}

// TreatedBy returns the settlement state of a host treat. It overwrites any
// prior status unconditionally, including an already-paid one.
func TreatedBy(hostName string, now time.Time) PaymentState {
	return PaymentState{
		Status:          PaymentTreated,
		Method:          MethodTreated,
		PaidBy:          hostName,
		ConfirmedByHost: true,
		PaidAt:          now,
	}
}
