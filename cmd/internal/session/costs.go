package session

// CostEntry is one participant's derived share of the session total. It is
// never stored: recomputation after every mutation is cheap and avoids
// staleness bugs.
type CostEntry struct {
	ParticipantName string       `json:"participant_name"`
	ItemsTotal      float64      `json:"items_total"`
	DeliveryShare   float64      `json:"delivery_share"`
	Total           float64      `json:"total"`
	Items           []LineItem   `json:"items"`
	Payment         PaymentState `json:"payment"`
}

// ComputeCosts derives every participant's items subtotal, equal delivery
// share, and grand total. Pure and order-preserving: output follows the
// ledger's insertion order (oldest submission first), and an empty ledger
// yields an empty result rather than a division by zero.
func ComputeCosts(deliveryFee float64, orders []ParticipantOrder) []CostEntry {
	if len(orders) == 0 {
		return nil
	}

	share := deliveryFee / float64(len(orders))

	out := make([]CostEntry, 0, len(orders))
	for _, o := range orders {
		var itemsTotal float64
		for _, it := range o.Items {
			if it.Unavailable {
				continue
			}
			itemsTotal += it.Price * float64(it.Quantity)
		}
		out = append(out, CostEntry{
			ParticipantName: o.ParticipantName,
			ItemsTotal:      itemsTotal,
			DeliveryShare:   share,
			Total:           itemsTotal + share,
			Items:           append([]LineItem(nil), o.Items...),
			Payment:         o.Payment,
		})
	}
	return out
}
