package realtime

import (
	"io"
	"log/slog"
	"testing"

	v1 "splitbite/shared/contracts/orders/v1"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEnvelope(typ string) v1.Envelope {
	return v1.Envelope{V: v1.Version, Type: typ, ID: "e1"}
}

func TestRoomBroadcastDelivers(t *testing.T) {
	t.Parallel()

	room := NewRoom(testLogger(), "s1")
	a := NewClient("c-a", 4)
	b := NewClient("c-b", 4)
	room.Join(a)
	room.Join(b)

	delivered, dropped := room.Broadcast(testEnvelope(v1.TypeOrdersUpdated))
	if delivered != 2 || dropped != 0 {
		t.Fatalf("broadcast=(%d, %d) want (2, 0)", delivered, dropped)
	}

	for _, c := range []*Client{a, b} {
		select {
		case env := <-c.Send:
			if env.Type != v1.TypeOrdersUpdated {
				t.Fatalf("client %s got type=%q", c.ID, env.Type)
			}
		default:
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
}

func TestRoomBroadcastDropsOnBackpressure(t *testing.T) {
	t.Parallel()

	room := NewRoom(testLogger(), "s1")
	slow := NewClient("c-slow", 32)
	room.Join(slow)

	// Fill the queue; further sends must drop, never block.
	for i := 0; i < cap(slow.Send); i++ {
		room.Broadcast(testEnvelope(v1.TypeFeeUpdated))
	}
	delivered, dropped := room.Broadcast(testEnvelope(v1.TypeFeeUpdated))
	if delivered != 0 || dropped != 1 {
		t.Fatalf("broadcast on full queue=(%d, %d) want (0, 1)", delivered, dropped)
	}
}

func TestRoomLeaveSkipsClosedClient(t *testing.T) {
	t.Parallel()

	room := NewRoom(testLogger(), "s1")
	a := NewClient("c-a", 4)
	room.Join(a)

	room.Leave("c-a")

	select {
	case <-a.Done():
	default:
		t.Fatal("Leave did not signal client shutdown")
	}

	if size := room.Size(); size != 0 {
		t.Fatalf("size=%d want 0 after leave", size)
	}

	delivered, dropped := room.Broadcast(testEnvelope(v1.TypeSessionClosed))
	if delivered != 0 || dropped != 0 {
		t.Fatalf("broadcast after leave=(%d, %d) want (0, 0)", delivered, dropped)
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	t.Parallel()

	c := NewClient("c-a", 4)
	c.Close()
	c.Close() // must not panic

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed after Close")
	}
}
