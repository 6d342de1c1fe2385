package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"splitbite/cmd/internal/session"
)

var testSecret = []byte("test-secret")

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := session.NewService(log, session.NewInMemoryStore())
	return NewHandler(log, svc, testSecret)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func mintToken(t *testing.T, h http.Handler, name string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/token", "", map[string]string{"name": name})
	if rec.Code != http.StatusOK {
		t.Fatalf("mint token for %q: status = %d, body = %s", name, rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	return resp.Token
}

func createSession(t *testing.T, h http.Handler, token string, fee float64) sessionResponse {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/sessions", token, createSessionRequest{
		HostPaymentTarget: "host@bank",
		DeliveryFee:       fee,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	return resp
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	router := newTestHandler(t).Router(nil)

	for _, tc := range []struct {
		name  string
		token string
	}{
		{name: "missing header", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, router, http.MethodGet, "/api/sessions", tc.token, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestMintTokenRejectsEmptyName(t *testing.T) {
	t.Parallel()
	router := newTestHandler(t).Router(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/token", "", map[string]string{"name": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	router := newTestHandler(t).Router(nil)

	hostToken := mintToken(t, router, "Dana")
	aliceToken := mintToken(t, router, "Alice")

	created := createSession(t, router, hostToken, 30)
	if created.Status != "active" {
		t.Fatalf("status = %q, want active", created.Status)
	}
	if created.Deadline == nil {
		t.Fatal("expected a default deadline on the created session")
	}

	base := "/api/sessions/" + created.ID

	rec := doJSON(t, router, http.MethodPost, base+"/orders", aliceToken, submitOrderRequest{
		Items: []itemRequest{{Name: "Pad Thai", Price: 12, Quantity: 1}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit order: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, base+"/orders", hostToken, submitOrderRequest{
		Items: []itemRequest{{Name: "Green Curry", Price: 14, Quantity: 1}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit host order: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, base, aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get session: status = %d", rec.Code)
	}
	var snap sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Orders) != 2 {
		t.Fatalf("orders = %d, want 2", len(snap.Orders))
	}
	if len(snap.Costs) != 2 {
		t.Fatalf("costs = %d, want 2", len(snap.Costs))
	}
	for _, c := range snap.Costs {
		if c.DeliveryShare != 15 {
			t.Errorf("delivery share for %s = %v, want 15", c.ParticipantName, c.DeliveryShare)
		}
	}

	rec = doJSON(t, router, http.MethodPost, base+"/close", hostToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close: status = %d", rec.Code)
	}

	// Item mutation is rejected after close; settling up is not.
	rec = doJSON(t, router, http.MethodPost, base+"/orders", aliceToken, submitOrderRequest{
		Items: []itemRequest{{Name: "Late Add", Price: 5, Quantity: 1}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("submit after close: status = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/orders/Alice/payment", aliceToken, paymentRequest{
		Status: "paid", Method: "transfer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("payment after close: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	for _, o := range snap.Orders {
		if o.ParticipantName == "Alice" && !o.Payment.Paid {
			t.Error("Alice's payment not marked paid")
		}
	}
}

func TestHostOnlyOperations(t *testing.T) {
	t.Parallel()
	router := newTestHandler(t).Router(nil)

	hostToken := mintToken(t, router, "Dana")
	guestToken := mintToken(t, router, "Bob")

	created := createSession(t, router, hostToken, 10)
	base := "/api/sessions/" + created.ID

	rec := doJSON(t, router, http.MethodPost, base+"/orders", guestToken, submitOrderRequest{
		Items: []itemRequest{{Name: "Soup", Price: 6, Quantity: 1}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit order: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/orders/Bob/confirm", guestToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("guest confirm: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/treat", guestToken, treatRequest{Targets: []string{"Bob"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("guest treat: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/treat", hostToken, treatRequest{Targets: []string{session.TreatAll}})
	if rec.Code != http.StatusOK {
		t.Fatalf("host treat: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp treatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode treat response: %v", err)
	}
	if resp.TreatedCount != 1 {
		t.Fatalf("treated count = %d, want 1", resp.TreatedCount)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	router := newTestHandler(t).Router(nil)
	token := mintToken(t, router, "Dana")

	for _, tc := range []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown session",
			method:     http.MethodGet,
			path:       "/api/sessions/01JUNKJUNKJUNKJUNKJUNKJUNK",
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "invalid create",
			method:     http.MethodPost,
			path:       "/api/sessions",
			body:       createSessionRequest{HostPaymentTarget: "", DeliveryFee: -3},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_failed",
		},
		{
			name:       "malformed body",
			method:     http.MethodPost,
			path:       "/api/sessions",
			body:       map[string]any{"unexpected_field": true},
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_json",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, router, tc.method, tc.path, token, tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Error.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestUpsertKeepsPaymentOverHTTP(t *testing.T) {
	t.Parallel()
	router := newTestHandler(t).Router(nil)

	hostToken := mintToken(t, router, "Dana")
	created := createSession(t, router, hostToken, 0)
	base := fmt.Sprintf("/api/sessions/%s/orders", created.ID)

	rec := doJSON(t, router, http.MethodPost, base, hostToken, submitOrderRequest{
		Items: []itemRequest{{Name: "Tea", Price: 3, Quantity: 1}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("first submit: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/Dana/payment", hostToken, paymentRequest{Status: "paid"})
	if rec.Code != http.StatusOK {
		t.Fatalf("mark paid: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, base, hostToken, submitOrderRequest{
		Items: []itemRequest{{Name: "Tea", Price: 3, Quantity: 2}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("resubmit: status = %d", rec.Code)
	}

	var snap sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Orders) != 1 {
		t.Fatalf("orders = %d, want 1 after resubmit", len(snap.Orders))
	}
	if !snap.Orders[0].Payment.Paid {
		t.Error("resubmitting an order reset its payment state")
	}
	if snap.Orders[0].Items[0].Quantity != 2 {
		t.Errorf("quantity = %d, want 2", snap.Orders[0].Items[0].Quantity)
	}
}
