package session

import (
	"math"
	"testing"
	"time"
)

func order(name string, items ...LineItem) ParticipantOrder {
	return ParticipantOrder{
		ParticipantName: name,
		Items:           items,
		Payment:         NewPaymentState(),
		SubmittedAt:     time.Now(),
	}
}

func TestComputeCostsEmptyLedger(t *testing.T) {
	t.Parallel()

	if got := ComputeCosts(30, nil); len(got) != 0 {
		t.Fatalf("ComputeCosts(30, nil)=%v want empty", got)
	}
}

func TestComputeCostsEqualSplit(t *testing.T) {
	t.Parallel()

	orders := []ParticipantOrder{
		order("Alice", LineItem{Name: "Tea", Price: 10, Quantity: 2}),
		order("Bob", LineItem{Name: "Coffee", Price: 15, Quantity: 1}),
	}

	got := ComputeCosts(30, orders)
	if len(got) != 2 {
		t.Fatalf("len=%d want 2", len(got))
	}

	want := []struct {
		itemsTotal, share, total float64
	}{
		{itemsTotal: 20, share: 15, total: 35},
		{itemsTotal: 15, share: 15, total: 30},
	}
	for i, w := range want {
		e := got[i]
		if e.ItemsTotal != w.itemsTotal || e.DeliveryShare != w.share || e.Total != w.total {
			t.Fatalf("entry %d = {items:%v share:%v total:%v} want %+v", i, e.ItemsTotal, e.DeliveryShare, e.Total, w)
		}
	}
}

func TestComputeCostsShareSumEqualsFee(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		fee  float64
		n    int
	}{
		{name: "even split", fee: 30, n: 2},
		{name: "uneven split", fee: 10, n: 3},
		{name: "zero fee", fee: 0, n: 4},
		{name: "single participant", fee: 7.5, n: 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			orders := make([]ParticipantOrder, 0, tc.n)
			for i := 0; i < tc.n; i++ {
				orders = append(orders, order(string(rune('A'+i)), LineItem{Name: "x", Price: 1, Quantity: 1}))
			}

			var sum float64
			for _, e := range ComputeCosts(tc.fee, orders) {
				sum += e.DeliveryShare
			}
			if math.Abs(sum-tc.fee) > 1e-9 {
				t.Fatalf("sum of shares=%v want %v", sum, tc.fee)
			}
		})
	}
}

func TestComputeCostsExcludesUnavailable(t *testing.T) {
	t.Parallel()

	orders := []ParticipantOrder{
		order("Alice",
			LineItem{Name: "Tea", Price: 10, Quantity: 2},
			LineItem{Name: "Cake", Price: 20, Quantity: 1, Unavailable: true},
		),
		order("Bob", LineItem{Name: "Coffee", Price: 15, Quantity: 1}),
	}

	got := ComputeCosts(0, orders)
	if got[0].ItemsTotal != 20 {
		t.Fatalf("Alice items_total=%v want 20 (unavailable excluded)", got[0].ItemsTotal)
	}
	if got[1].ItemsTotal != 15 {
		t.Fatalf("Bob items_total=%v want 15 (unaffected)", got[1].ItemsTotal)
	}
	// The flagged item stays visible in the echoed items.
	if len(got[0].Items) != 2 {
		t.Fatalf("Alice echoed items=%d want 2", len(got[0].Items))
	}

	// Toggling availability back restores only Alice's subtotal.
	orders[0].Items[1].Unavailable = false
	got = ComputeCosts(0, orders)
	if got[0].ItemsTotal != 40 || got[1].ItemsTotal != 15 {
		t.Fatalf("after toggle: got {%v, %v} want {40, 15}", got[0].ItemsTotal, got[1].ItemsTotal)
	}
}

func TestComputeCostsPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	orders := []ParticipantOrder{
		order("Zoe", LineItem{Name: "a", Price: 1, Quantity: 1}),
		order("Amir", LineItem{Name: "b", Price: 99, Quantity: 1}),
		order("Mina", LineItem{Name: "c", Price: 5, Quantity: 1}),
	}

	got := ComputeCosts(9, orders)
	for i, want := range []string{"Zoe", "Amir", "Mina"} {
		if got[i].ParticipantName != want {
			t.Fatalf("entry %d = %q want %q (no re-sorting)", i, got[i].ParticipantName, want)
		}
	}
}
