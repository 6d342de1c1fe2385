package api

import (
	"time"

	"splitbite/cmd/internal/session"
)

type createSessionRequest struct {
	HostPaymentTarget string  `json:"host_payment_target"`
	DeliveryFee       float64 `json:"delivery_fee"`
	DeadlineMinutes   int     `json:"deadline_minutes,omitempty"`
	RestaurantRef     string  `json:"restaurant_ref,omitempty"`
}

type itemRequest struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Unavailable bool    `json:"unavailable,omitempty"`
}

type submitOrderRequest struct {
	ParticipantName string        `json:"participant_name,omitempty"`
	Items           []itemRequest `json:"items"`
}

type editOrderRequest struct {
	Items []itemRequest `json:"items"`
}

type paymentRequest struct {
	Status string `json:"status"`
	Method string `json:"method,omitempty"`
	PaidBy string `json:"paid_by,omitempty"`
}

type treatRequest struct {
	Targets []string `json:"targets"`
}

type feeRequest struct {
	DeliveryFee float64 `json:"delivery_fee"`
}

type restaurantRequest struct {
	RestaurantRef string `json:"restaurant_ref"`
}

type paymentResponse struct {
	Status          string     `json:"status"`
	Method          string     `json:"method"`
	PaidBy          string     `json:"paid_by,omitempty"`
	ConfirmedByHost bool       `json:"confirmed_by_host"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	Paid            bool       `json:"paid"`
}

type orderResponse struct {
	ParticipantID   string          `json:"participant_id,omitempty"`
	ParticipantName string          `json:"participant_name"`
	Items           []itemRequest   `json:"items"`
	Payment         paymentResponse `json:"payment"`
	SubmittedAt     time.Time       `json:"submitted_at"`
}

type costResponse struct {
	ParticipantName string  `json:"participant_name"`
	ItemsTotal      float64 `json:"items_total"`
	DeliveryShare   float64 `json:"delivery_share"`
	Total           float64 `json:"total"`
}

type sessionResponse struct {
	ID                string          `json:"id"`
	HostID            string          `json:"host_id"`
	HostName          string          `json:"host_name"`
	HostPaymentTarget string          `json:"host_payment_target"`
	DeliveryFee       float64         `json:"delivery_fee"`
	Deadline          *time.Time      `json:"deadline,omitempty"`
	RestaurantRef     string          `json:"restaurant_ref,omitempty"`
	Status            string          `json:"status"`
	Orders            []orderResponse `json:"orders"`
	Costs             []costResponse  `json:"costs"`
	CreatedAt         time.Time       `json:"created_at"`
}

type treatResponse struct {
	Session      sessionResponse `json:"session"`
	TreatedCount int             `json:"treated_count"`
}

type summaryResponse struct {
	ID            string     `json:"id"`
	HostName      string     `json:"host_name"`
	RestaurantRef string     `json:"restaurant_ref,omitempty"`
	Status        string     `json:"status"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	Participants  int        `json:"participants"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toItems(items []itemRequest) []session.LineItem {
	out := make([]session.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, session.LineItem{
			Name:        it.Name,
			Price:       it.Price,
			Quantity:    it.Quantity,
			Unavailable: it.Unavailable,
		})
	}
	return out
}

func fromItems(items []session.LineItem) []itemRequest {
	out := make([]itemRequest, 0, len(items))
	for _, it := range items {
		out = append(out, itemRequest{
			Name:        it.Name,
			Price:       it.Price,
			Quantity:    it.Quantity,
			Unavailable: it.Unavailable,
		})
	}
	return out
}

func fromPayment(p session.PaymentState) paymentResponse {
	var paidAt *time.Time
	if !p.PaidAt.IsZero() {
		t := p.PaidAt
		paidAt = &t
	}
	return paymentResponse{
		Status:          string(p.Status),
		Method:          string(p.Method),
		PaidBy:          p.PaidBy,
		ConfirmedByHost: p.ConfirmedByHost,
		PaidAt:          paidAt,
		Paid:            p.Settled(),
	}
}

func fromSnapshot(snap *session.Snapshot) sessionResponse {
	s := snap.Session

	orders := make([]orderResponse, 0, len(s.Orders))
	for _, o := range s.Orders {
		orders = append(orders, orderResponse{
			ParticipantID:   o.ParticipantID,
			ParticipantName: o.ParticipantName,
			Items:           fromItems(o.Items),
			Payment:         fromPayment(o.Payment),
			SubmittedAt:     o.SubmittedAt,
		})
	}

	costs := make([]costResponse, 0, len(snap.Costs))
	for _, c := range snap.Costs {
		costs = append(costs, costResponse{
			ParticipantName: c.ParticipantName,
			ItemsTotal:      c.ItemsTotal,
			DeliveryShare:   c.DeliveryShare,
			Total:           c.Total,
		})
	}

	var deadline *time.Time
	if !s.Deadline.IsZero() {
		t := s.Deadline
		deadline = &t
	}

	return sessionResponse{
		ID:                s.ID,
		HostID:            s.HostID,
		HostName:          s.HostName,
		HostPaymentTarget: s.HostPaymentTarget,
		DeliveryFee:       s.DeliveryFee,
		Deadline:          deadline,
		RestaurantRef:     s.RestaurantRef,
		Status:            string(s.Status),
		Orders:            orders,
		Costs:             costs,
		CreatedAt:         s.CreatedAt,
	}
}

func fromSummaries(in []session.Summary) []summaryResponse {
	out := make([]summaryResponse, 0, len(in))
	for _, s := range in {
		var deadline *time.Time
		if !s.Deadline.IsZero() {
			t := s.Deadline
			deadline = &t
		}
		out = append(out, summaryResponse{
			ID:            s.ID,
			HostName:      s.HostName,
			RestaurantRef: s.RestaurantRef,
			Status:        string(s.Status),
			Deadline:      deadline,
			Participants:  s.Participants,
			CreatedAt:     s.CreatedAt,
		})
	}
	return out
}
