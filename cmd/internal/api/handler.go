// Package api exposes the session core over HTTP. Requests carry a bearer
// token minted by the dev token endpoint (or an external issuer sharing the
// secret); handlers translate wire payloads into core calls and core errors
// into a stable status/code mapping.
package api

import (
	"log/slog"
	"net/http"

	"splitbite/cmd/internal/session"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
)

// Handler owns the HTTP surface for session operations.
type Handler struct {
	log       *slog.Logger
	svc       *session.Service
	jwtSecret []byte

	mutations *prometheus.CounterVec // by operation, nil-safe
}

// Option customizes a Handler.
type Option func(*Handler)

// WithMutationCounter records one increment per accepted mutating operation,
// labeled by operation name.
func WithMutationCounter(c *prometheus.CounterVec) Option {
	return func(h *Handler) { h.mutations = c }
}

// NewHandler wires the HTTP surface over the session service.
func NewHandler(log *slog.Logger, svc *session.Service, jwtSecret []byte, opts ...Option) *Handler {
	h := &Handler{log: log, svc: svc, jwtSecret: jwtSecret}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the route table. CORS is permissive on methods and headers
// but echoes no credentials; bearer tokens ride the Authorization header.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/token", h.handleMintToken).Methods(http.MethodPost)

	s := r.PathPrefix("/api/sessions").Subrouter()
	s.Use(h.withAuth)
	s.HandleFunc("", h.handleCreateSession).Methods(http.MethodPost)
	s.HandleFunc("", h.handleListSessions).Methods(http.MethodGet)
	s.HandleFunc("/{id}", h.handleGetSession).Methods(http.MethodGet)
	s.HandleFunc("/{id}/orders", h.handleSubmitOrder).Methods(http.MethodPost)
	s.HandleFunc("/{id}/orders/{name}", h.handleEditOrder).Methods(http.MethodPut)
	s.HandleFunc("/{id}/orders/{name}", h.handleDeleteOrder).Methods(http.MethodDelete)
	s.HandleFunc("/{id}/orders/{name}/payment", h.handleUpdatePayment).Methods(http.MethodPost)
	s.HandleFunc("/{id}/orders/{name}/confirm", h.handleConfirmPayment).Methods(http.MethodPost)
	s.HandleFunc("/{id}/treat", h.handleTreat).Methods(http.MethodPost)
	s.HandleFunc("/{id}/fee", h.handleChangeFee).Methods(http.MethodPut)
	s.HandleFunc("/{id}/restaurant", h.handleChangeRestaurant).Methods(http.MethodPut)
	s.HandleFunc("/{id}/close", h.handleClose).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})
	return c.Handler(r)
}

func (h *Handler) countMutation(op string) {
	if h.mutations != nil {
		h.mutations.WithLabelValues(op).Inc()
	}
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	id, ok := identityFrom(r.Context())
	if !ok {
		// withAuth always sets the identity; reaching here means a route
		// escaped the middleware.
		writeError(w, http.StatusUnauthorized, "unauthorized", "no identity")
	}
	return id, ok
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	sess, err := h.svc.Create(r.Context(), session.CreateInput{
		Host:              caller,
		HostPaymentTarget: req.HostPaymentTarget,
		DeliveryFee:       req.DeliveryFee,
		DeadlineMinutes:   req.DeadlineMinutes,
		RestaurantRef:     req.RestaurantRef,
	})
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("create_session")
	h.log.Info("session.created", "session_id", sess.ID, "host", caller.Name)
	writeJSON(w, http.StatusCreated, fromSnapshot(&session.Snapshot{Session: sess}))
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	summaries, err := h.svc.List(r.Context(), caller.ID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": fromSummaries(summaries)})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}

func (h *Handler) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req submitOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	snap, err := h.svc.SubmitOrder(r.Context(), mux.Vars(r)["id"], caller, req.ParticipantName, toItems(req.Items))
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("submit_order")
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}

func (h *Handler) handleEditOrder(w http.ResponseWriter, r *http.Request) {
	var req editOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	vars := mux.Vars(r)
	snap, err := h.svc.EditOrder(r.Context(), vars["id"], vars["name"], toItems(req.Items))
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("edit_order")
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snap, err := h.svc.DeleteOrder(r.Context(), vars["id"], vars["name"])
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("delete_order")
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}

func (h *Handler) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	vars := mux.Vars(r)
	snap, err := h.svc.UpdatePayment(r.Context(), vars["id"], caller, vars["name"],
		session.PaymentStatus(req.Status), session.PaymentMethod(req.Method), req.PaidBy)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("update_payment")
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}

func (h *Handler) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	snap, err := h.svc.ConfirmPayment(r.Context(), vars["id"], caller, vars["name"])
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("confirm_payment")
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}

func (h *Handler) handleTreat(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req treatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	snap, treated, err := h.svc.Treat(r.Context(), mux.Vars(r)["id"], caller, req.Targets)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("treat")
	h.log.Info("session.treated", "session_id", snap.Session.ID, "count", treated)
	writeJSON(w, http.StatusOK, treatResponse{Session: fromSnapshot(snap), TreatedCount: treated})
}

func (h *Handler) handleChangeFee(w http.ResponseWriter, r *http.Request) {
	var req feeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	snap, err := h.svc.ChangeDeliveryFee(r.Context(), mux.Vars(r)["id"], req.DeliveryFee)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("change_fee")
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}

func (h *Handler) handleChangeRestaurant(w http.ResponseWriter, r *http.Request) {
	var req restaurantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	snap, err := h.svc.ChangeRestaurant(r.Context(), mux.Vars(r)["id"], req.RestaurantRef)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("change_restaurant")
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Close(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeCoreError(w, err)
		return
	}

	h.countMutation("close_session")
	h.log.Info("session.closed", "session_id", snap.Session.ID)
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}
