package realtime

import (
	"encoding/json"
	"log/slog"
	"time"

	"splitbite/cmd/internal/session"
	v1 "splitbite/shared/contracts/orders/v1"

	"github.com/prometheus/client_golang/prometheus"
)

// Publisher maps core change events onto wire envelopes and fans them out to
// the session's room. It implements session.Notifier.
//
// Publishing to a session with zero watchers is a no-op: the room is not even
// created. Marshal failures are logged and dropped; the core has already
// committed and must never be rolled back by a broadcast problem.
type Publisher struct {
	log *slog.Logger
	hub *Hub

	published *prometheus.CounterVec
	dropped   prometheus.Counter
}

// PublisherOption configures optional Publisher metrics.
type PublisherOption func(*Publisher)

// WithPublishCounters wires fan-out metrics: published counts by event type
// and sends dropped under backpressure.
func WithPublishCounters(published *prometheus.CounterVec, dropped prometheus.Counter) PublisherOption {
	return func(p *Publisher) {
		p.published = published
		p.dropped = dropped
	}
}

// NewPublisher constructs a Publisher over the hub.
func NewPublisher(log *slog.Logger, hub *Hub, opts ...PublisherOption) *Publisher {
	p := &Publisher{log: log, hub: hub}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Publish implements session.Notifier.
func (p *Publisher) Publish(sessionID string, ev session.Event) {
	room, ok := p.hub.Room(sessionID)
	if !ok || room.Size() == 0 {
		return
	}

	env, err := EventEnvelope(sessionID, ev, time.Now().UTC())
	if err != nil {
		p.log.Error("publish.encode.fail", "session_id", sessionID, "type", string(ev.Type), "err", err)
		return
	}

	_, dropped := room.Broadcast(env)
	if p.published != nil {
		p.published.WithLabelValues(env.Type).Inc()
	}
	if dropped > 0 {
		if p.dropped != nil {
			p.dropped.Add(float64(dropped))
		}
		p.log.Warn("publish.backpressure", "session_id", sessionID, "type", env.Type, "dropped", dropped)
	}
}

// EventEnvelope converts a core change event into its v1 wire envelope.
func EventEnvelope(sessionID string, ev session.Event, now time.Time) (v1.Envelope, error) {
	var (
		typ     string
		payload any
	)

	switch ev.Type {
	case session.EventOrdersUpdated:
		typ = v1.TypeOrdersUpdated
		payload = v1.OrdersUpdatedPayload{
			SessionID: sessionID,
			Orders:    wireOrders(ev.Orders),
			Costs:     wireCosts(ev.Costs),
		}
	case session.EventFeeUpdated:
		typ = v1.TypeFeeUpdated
		payload = v1.FeeUpdatedPayload{SessionID: sessionID, DeliveryFee: ev.DeliveryFee}
	case session.EventRestaurantUpdated:
		typ = v1.TypeRestaurantUpdated
		payload = v1.RestaurantUpdatedPayload{SessionID: sessionID, RestaurantRef: ev.RestaurantRef}
	case session.EventSessionClosed:
		typ = v1.TypeSessionClosed
		payload = v1.SessionClosedPayload{SessionID: sessionID}
	default:
		typ = v1.TypeError
		payload = v1.ErrorPayload{Code: "unknown_event", Message: string(ev.Type)}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return v1.Envelope{}, err
	}

	env := newEnvelope(typ, raw, now)
	env.SessionID = sessionID
	return env, nil
}

func wireOrders(orders []session.ParticipantOrder) []v1.OrderPayload {
	out := make([]v1.OrderPayload, 0, len(orders))
	for _, o := range orders {
		out = append(out, v1.OrderPayload{
			ParticipantID:   o.ParticipantID,
			ParticipantName: o.ParticipantName,
			Items:           wireItems(o.Items),
			Payment:         wirePayment(o.Payment),
			SubmittedAt:     o.SubmittedAt,
		})
	}
	return out
}

func wireItems(items []session.LineItem) []v1.LineItemPayload {
	out := make([]v1.LineItemPayload, 0, len(items))
	for _, it := range items {
		out = append(out, v1.LineItemPayload{
			Name:        it.Name,
			Price:       it.Price,
			Quantity:    it.Quantity,
			Unavailable: it.Unavailable,
		})
	}
	return out
}

func wirePayment(p session.PaymentState) v1.PaymentPayload {
	var paidAt *time.Time
	if !p.PaidAt.IsZero() {
		t := p.PaidAt
		paidAt = &t
	}
	return v1.PaymentPayload{
		Status:          string(p.Status),
		Method:          string(p.Method),
		PaidBy:          p.PaidBy,
		ConfirmedByHost: p.ConfirmedByHost,
		PaidAt:          paidAt,
		Paid:            p.Settled(),
	}
}

func wireCosts(costs []session.CostEntry) []v1.CostPayload {
	out := make([]v1.CostPayload, 0, len(costs))
	for _, c := range costs {
		out = append(out, v1.CostPayload{
			ParticipantName: c.ParticipantName,
			ItemsTotal:      c.ItemsTotal,
			DeliveryShare:   c.DeliveryShare,
			Total:           c.Total,
		})
	}
	return out
}
