// Package v1 defines the splitbite orders realtime protocol v1 contract.
//
// This package is intentionally stable and dependency-light.
// It is shared between server and clients to keep the wire protocol authoritative.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Type constants (wire-stable).
const (
	// TypeHello starts a connection handshake (client -> server).
	TypeHello = "hello"
	// TypeHelloAck acknowledges the connection handshake (server -> client).
	TypeHelloAck = "hello_ack"

	// TypeSessionWatch subscribes to an order session (client -> server) and is echoed back.
	TypeSessionWatch = "session_watch"

	// TypeOrdersUpdated broadcasts the full order ledger and derived costs
	// after any ledger or payment mutation (server -> session watchers).
	TypeOrdersUpdated = "orders_updated"
	// TypeFeeUpdated broadcasts a delivery fee change (server -> session watchers).
	TypeFeeUpdated = "fee_updated"
	// TypeRestaurantUpdated broadcasts a restaurant reference change (server -> session watchers).
	TypeRestaurantUpdated = "restaurant_updated"
	// TypeSessionClosed broadcasts that the ordering window was closed (server -> session watchers).
	TypeSessionClosed = "session_closed"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V         string          `json:"v"`
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	TS        time.Time       `json:"ts,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeHello,
		TypeHelloAck,
		TypeSessionWatch,
		TypeOrdersUpdated,
		TypeFeeUpdated,
		TypeRestaurantUpdated,
		TypeSessionClosed,
		TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ---- Payloads ----

// HelloPayload is sent by the client to initiate a connection.
type HelloPayload struct{}

// HelloAckPayload carries the server-assigned connection id.
type HelloAckPayload struct {
	ClientID string `json:"client_id"`
}

// SessionWatchPayload subscribes the connection to one order session's events.
type SessionWatchPayload struct {
	SessionID string `json:"session_id"`
}

// LineItemPayload is the wire shape of one menu selection.
type LineItemPayload struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Unavailable bool    `json:"unavailable,omitempty"`
}

// PaymentPayload is the wire shape of one order's settlement state.
// Paid is derived from Status for legacy clients and never authoritative.
type PaymentPayload struct {
	Status          string     `json:"status"`
	Method          string     `json:"method"`
	PaidBy          string     `json:"paid_by,omitempty"`
	ConfirmedByHost bool       `json:"confirmed_by_host"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	Paid            bool       `json:"paid"`
}

// OrderPayload is the wire shape of one participant's order.
type OrderPayload struct {
	ParticipantID   string            `json:"participant_id,omitempty"`
	ParticipantName string            `json:"participant_name"`
	Items           []LineItemPayload `json:"items"`
	Payment         PaymentPayload    `json:"payment"`
	SubmittedAt     time.Time         `json:"submitted_at"`
}

// CostPayload is one participant's derived share of the session total.
type CostPayload struct {
	ParticipantName string  `json:"participant_name"`
	ItemsTotal      float64 `json:"items_total"`
	DeliveryShare   float64 `json:"delivery_share"`
	Total           float64 `json:"total"`
}

// OrdersUpdatedPayload carries the full ledger plus derived costs after a mutation.
type OrdersUpdatedPayload struct {
	SessionID string         `json:"session_id"`
	Orders    []OrderPayload `json:"orders"`
	Costs     []CostPayload  `json:"costs"`
}

// FeeUpdatedPayload carries the new shared delivery fee.
type FeeUpdatedPayload struct {
	SessionID   string  `json:"session_id"`
	DeliveryFee float64 `json:"delivery_fee"`
}

// RestaurantUpdatedPayload carries the new linked restaurant reference.
type RestaurantUpdatedPayload struct {
	SessionID     string `json:"session_id"`
	RestaurantRef string `json:"restaurant_ref"`
}

// SessionClosedPayload announces that the ordering window is closed.
type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
