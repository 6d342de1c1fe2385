package session

// EventType discriminates outbound change events.
type EventType string

const (
	// EventOrdersUpdated follows any ledger or payment mutation and carries
	// the full ledger plus recomputed costs.
	EventOrdersUpdated EventType = "orders_updated"
	// EventFeeUpdated follows a delivery fee change.
	EventFeeUpdated EventType = "fee_updated"
	// EventRestaurantUpdated follows a restaurant reference change.
	EventRestaurantUpdated EventType = "restaurant_updated"
	// EventSessionClosed follows the one-way active -> closed transition.
	EventSessionClosed EventType = "session_closed"
)

// Event is an outbound change notification for one session. Only the fields
// relevant to its Type are populated.
type Event struct {
	Type          EventType
	Orders        []ParticipantOrder
	Costs         []CostEntry
	DeliveryFee   float64
	RestaurantRef string
}

// Notifier is the outbound fan-out boundary. Delivery is fire-and-forget to
// whatever observers currently watch the session; publishing with zero
// watchers is a no-op, never an error. The core produces events only — it
// does not manage watcher membership.
type Notifier interface {
	Publish(sessionID string, ev Event)
}

func ordersUpdated(s *Session) Event {
	return Event{
		Type:   EventOrdersUpdated,
		Orders: cloneOrders(s.Orders),
		Costs:  ComputeCosts(s.DeliveryFee, s.Orders),
	}
}

func feeUpdated(fee float64) Event {
	return Event{Type: EventFeeUpdated, DeliveryFee: fee}
}

func restaurantUpdated(ref string) Event {
	return Event{Type: EventRestaurantUpdated, RestaurantRef: ref}
}

func sessionClosed() Event {
	return Event{Type: EventSessionClosed}
}
