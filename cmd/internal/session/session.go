// Package session implements the group-order core: the session aggregate and
// its order ledger, payment settlement, cost derivation, storage, and the
// outbound change-notification boundary.
package session

import (
	"strings"
	"time"
)

// Status is the session lifecycle state.
type Status string

const (
	// StatusActive accepts order submissions and host mutations.
	StatusActive Status = "active"
	// StatusClosed is terminal: the ledger stays readable, item/order/fee
	// mutations are rejected, settlement updates remain allowed.
	StatusClosed Status = "closed"
)

// DefaultDeadline is applied at creation when the caller supplies no
// (or a non-positive) deadline window.
const DefaultDeadline = 60 * time.Minute

// LineItem is one named, priced, quantified menu selection.
// Unavailable items stay visible in the ledger but are excluded from totals.
type LineItem struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Unavailable bool    `json:"unavailable,omitempty"`
}

// ParticipantOrder is one participant's current selection plus settlement state.
// ParticipantName is the upsert key within a session; ParticipantID may be
// empty for anonymous legacy entries.
type ParticipantOrder struct {
	ParticipantID   string       `json:"participant_id,omitempty"`
	ParticipantName string       `json:"participant_name"`
	Items           []LineItem   `json:"items"`
	Payment         PaymentState `json:"payment"`
	SubmittedAt     time.Time    `json:"submitted_at"`
}

// Session is one host-initiated group-ordering window.
type Session struct {
	ID                string             `json:"id"`
	HostID            string             `json:"host_id"`
	HostName          string             `json:"host_name"`
	HostPaymentTarget string             `json:"host_payment_target"`
	DeliveryFee       float64            `json:"delivery_fee"`
	Deadline          time.Time          `json:"deadline,omitempty"`
	RestaurantRef     string             `json:"restaurant_ref,omitempty"`
	Status            Status             `json:"status"`
	Orders            []ParticipantOrder `json:"orders"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Summary is the list-view projection of a session.
type Summary struct {
	ID            string    `json:"id"`
	HostName      string    `json:"host_name"`
	RestaurantRef string    `json:"restaurant_ref,omitempty"`
	Status        Status    `json:"status"`
	Deadline      time.Time `json:"deadline,omitempty"`
	Participants  int       `json:"participants"`
	CreatedAt     time.Time `json:"created_at"`
}

// Clone returns a deep copy so callers can read consistent snapshots while
// the original keeps mutating under the store's ownership.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Orders = cloneOrders(s.Orders)
	return &out
}

func cloneOrders(orders []ParticipantOrder) []ParticipantOrder {
	if orders == nil {
		return nil
	}
	out := make([]ParticipantOrder, len(orders))
	for i, o := range orders {
		out[i] = o
		out[i].Items = append([]LineItem(nil), o.Items...)
	}
	return out
}

// Summary projects the session into its list view.
func (s *Session) Summary() Summary {
	return Summary{
		ID:            s.ID,
		HostName:      s.HostName,
		RestaurantRef: s.RestaurantRef,
		Status:        s.Status,
		Deadline:      s.Deadline,
		Participants:  len(s.Orders),
		CreatedAt:     s.CreatedAt,
	}
}

// Involves reports whether identity is the host or has an order in the ledger.
func (s *Session) Involves(identity string) bool {
	if identity == "" {
		return false
	}
	if s.HostID == identity {
		return true
	}
	for _, o := range s.Orders {
		if o.ParticipantID == identity {
			return true
		}
	}
	return false
}

// orderIndex finds the ledger slot keyed by participant name.
func (s *Session) orderIndex(participantName string) (int, bool) {
	for i := range s.Orders {
		if s.Orders[i].ParticipantName == participantName {
			return i, true
		}
	}
	return -1, false
}

// deadlinePassed reports whether the ordering deadline is set and behind now.
func (s *Session) deadlinePassed(now time.Time) bool {
	return !s.Deadline.IsZero() && now.After(s.Deadline)
}

// normalizeItems trims names and validates every field constraint.
// The returned slice is a sanitized copy; the input is never retained.
func normalizeItems(items []LineItem) ([]LineItem, error) {
	if len(items) == 0 {
		return nil, invalidf("items", "at least one item required")
	}
	out := make([]LineItem, len(items))
	for i, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, invalidf("items.name", "item %d: name must be non-empty", i)
		}
		if it.Price <= 0 {
			return nil, invalidf("items.price", "item %d (%s): price must be > 0", i, name)
		}
		if it.Quantity < 1 {
			return nil, invalidf("items.quantity", "item %d (%s): quantity must be >= 1", i, name)
		}
		out[i] = LineItem{Name: name, Price: it.Price, Quantity: it.Quantity, Unavailable: it.Unavailable}
	}
	return out, nil
}
