package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"splitbite/cmd/internal/session"
	v1 "splitbite/shared/contracts/orders/v1"
)

func TestPublishWithoutWatchersIsNoop(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	pub := NewPublisher(testLogger(), hub)

	// Must not create a room, must not panic.
	pub.Publish("s-unwatched", session.Event{Type: session.EventSessionClosed})

	if _, ok := hub.Room("s-unwatched"); ok {
		t.Fatal("publish created a room for an unwatched session")
	}
}

func TestPublishFansOutToWatchers(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	pub := NewPublisher(testLogger(), hub)

	room := hub.GetOrCreateRoom("s1")
	watcher := NewClient("c1", 8)
	room.Join(watcher)

	pub.Publish("s1", session.Event{Type: session.EventFeeUpdated, DeliveryFee: 42})

	select {
	case env := <-watcher.Send:
		if env.Type != v1.TypeFeeUpdated || env.SessionID != "s1" {
			t.Fatalf("envelope={type:%q session:%q} want fee_updated for s1", env.Type, env.SessionID)
		}
		var p v1.FeeUpdatedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if p.DeliveryFee != 42 {
			t.Fatalf("delivery_fee=%v want 42", p.DeliveryFee)
		}
	default:
		t.Fatal("watcher received nothing")
	}
}

func TestEventEnvelopeOrdersUpdated(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	paidAt := now.Add(-time.Minute)

	ev := session.Event{
		Type: session.EventOrdersUpdated,
		Orders: []session.ParticipantOrder{
			{
				ParticipantName: "Alice",
				Items:           []session.LineItem{{Name: "Tea", Price: 10, Quantity: 2}},
				Payment: session.PaymentState{
					Status: session.PaymentPaid,
					Method: session.MethodTransfer,
					PaidBy: "Alice",
					PaidAt: paidAt,
				},
				SubmittedAt: now,
			},
		},
		Costs: []session.CostEntry{
			{ParticipantName: "Alice", ItemsTotal: 20, DeliveryShare: 15, Total: 35},
		},
	}

	env, err := EventEnvelope("s1", ev, now)
	if err != nil {
		t.Fatalf("EventEnvelope: %v", err)
	}
	if err := env.Validate(); err != nil {
		t.Fatalf("envelope invalid: %v", err)
	}
	if env.Type != v1.TypeOrdersUpdated || env.SessionID != "s1" {
		t.Fatalf("envelope={type:%q session:%q}", env.Type, env.SessionID)
	}

	var p v1.OrdersUpdatedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(p.Orders) != 1 || len(p.Costs) != 1 {
		t.Fatalf("payload counts orders=%d costs=%d want 1/1", len(p.Orders), len(p.Costs))
	}

	pay := p.Orders[0].Payment
	if !pay.Paid {
		t.Fatal("legacy paid flag not derived from settled status")
	}
	if pay.PaidAt == nil || !pay.PaidAt.Equal(paidAt) {
		t.Fatalf("paid_at=%v want %v", pay.PaidAt, paidAt)
	}
	if p.Costs[0].Total != 35 {
		t.Fatalf("cost total=%v want 35", p.Costs[0].Total)
	}
}
