package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"splitbite/cmd/internal/ids"
)

// Identity is a resolved caller: who the surrounding auth layer says is acting.
type Identity struct {
	ID   string
	Name string
}

// RestaurantLookup resolves a restaurant reference to existence. Menu content
// acquisition lives outside the core; this is the only question it asks.
type RestaurantLookup interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

// NotificationSink accepts best-effort push requests (e.g. "time to settle
// up"). Failures are logged by the core and never surfaced to callers.
type NotificationSink interface {
	Push(ctx context.Context, recipientID, title, body string) error
}

// Snapshot is the synchronous result of a mutating operation: the committed
// session state plus the recomputed cost table.
type Snapshot struct {
	Session *Session
	Costs   []CostEntry
}

// Service coordinates all session operations.
//
// Concurrency model: each session is the unit of mutual exclusion. A keyed
// mutex serializes read-modify-write cycles per session id, so concurrent
// mutations against different sessions never block each other while two
// submitters racing on one session resolve to last-committed-wins. Events are
// published after the authoritative write commits, under the same per-session
// lock, so the fan-out order matches the commit order.
type Service struct {
	log   *slog.Logger
	store Store

	notifier    Notifier
	restaurants RestaurantLookup
	pusher      NotificationSink

	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithNotifier sets the outbound change-event fan-out.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithRestaurantLookup sets the restaurant existence collaborator.
func WithRestaurantLookup(r RestaurantLookup) ServiceOption {
	return func(s *Service) { s.restaurants = r }
}

// WithNotificationSink sets the best-effort push collaborator.
func WithNotificationSink(p NotificationSink) ServiceOption {
	return func(s *Service) { s.pusher = p }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService constructs a Service over the given store.
func NewService(log *slog.Logger, store Store, opts ...ServiceOption) *Service {
	s := &Service{
		log:   log,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// lockFor returns the stable per-session mutex, creating it on first use.
// Entries are not reclaimed: a bare mutex per live session id is tiny and the
// retention sweep bounds the id space anyway.
func (s *Service) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// publish hands an event to the notifier. Fire-and-forget: a lost broadcast
// degrades real-time freshness but never rolls back a committed mutation.
func (s *Service) publish(sessionID string, ev Event) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("session.publish.panic", "session_id", sessionID, "type", string(ev.Type), "panic", r)
		}
	}()
	s.notifier.Publish(sessionID, ev)
}

// CreateInput describes a session creation request.
type CreateInput struct {
	Host              Identity
	HostPaymentTarget string
	DeliveryFee       float64
	DeadlineMinutes   int
	RestaurantRef     string
}

// Create opens a new ordering window. A non-positive DeadlineMinutes falls
// back to the 60-minute default.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Session, error) {
	if strings.TrimSpace(in.Host.ID) == "" {
		return nil, invalidf("host", "host identity required")
	}
	if strings.TrimSpace(in.Host.Name) == "" {
		return nil, invalidf("host_name", "host name required")
	}
	target := strings.TrimSpace(in.HostPaymentTarget)
	if target == "" {
		return nil, invalidf("host_payment_target", "payment target required")
	}
	if in.DeliveryFee < 0 {
		return nil, invalidf("delivery_fee", "must be >= 0, got %v", in.DeliveryFee)
	}
	if in.RestaurantRef != "" {
		if err := s.checkRestaurant(ctx, in.RestaurantRef); err != nil {
			return nil, err
		}
	}

	now := s.now()

	window := time.Duration(in.DeadlineMinutes) * time.Minute
	if window <= 0 {
		window = DefaultDeadline
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}

	sess := &Session{
		ID:                id,
		HostID:            in.Host.ID,
		HostName:          in.Host.Name,
		HostPaymentTarget: target,
		DeliveryFee:       in.DeliveryFee,
		Deadline:          now.Add(window),
		RestaurantRef:     in.RestaurantRef,
		Status:            StatusActive,
		CreatedAt:         now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.log.Info("session.create",
		"session_id", sess.ID,
		"host_id", sess.HostID,
		"delivery_fee", sess.DeliveryFee,
		"deadline", sess.Deadline,
	)
	return sess.Clone(), nil
}

// Get returns the session plus its derived cost table.
func (s *Service) Get(ctx context.Context, sessionID string) (*Snapshot, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Session: sess, Costs: ComputeCosts(sess.DeliveryFee, sess.Orders)}, nil
}

// List returns summaries of sessions involving identity, newest first.
func (s *Service) List(ctx context.Context, identity string) ([]Summary, error) {
	return s.store.ListFor(ctx, identity)
}

// mutate runs fn against the current aggregate under the session's lock,
// commits the result, and publishes the events fn queued — in that order.
// If fn or the commit fails, nothing is published.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(sess *Session, evs *[]Event) error) (*Snapshot, error) {
	l := s.lockFor(sessionID)
	l.Lock()
	defer l.Unlock()

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var evs []Event
	if err := fn(sess, &evs); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, sess); err != nil {
		return nil, err
	}

	for _, ev := range evs {
		s.publish(sessionID, ev)
	}

	return &Snapshot{Session: sess.Clone(), Costs: ComputeCosts(sess.DeliveryFee, sess.Orders)}, nil
}

// SubmitOrder admits a new order or replaces the caller's existing one.
// The ledger is keyed by participant name: a resubmission replaces items and
// submission time in place but never resets an advanced payment state.
func (s *Service) SubmitOrder(ctx context.Context, sessionID string, caller Identity, participantName string, items []LineItem) (*Snapshot, error) {
	name := strings.TrimSpace(participantName)
	if name == "" {
		name = strings.TrimSpace(caller.Name)
	}
	if name == "" {
		return nil, invalidf("participant_name", "participant name required")
	}

	clean, err := normalizeItems(items)
	if err != nil {
		return nil, err
	}

	snap, err := s.mutate(ctx, sessionID, func(sess *Session, evs *[]Event) error {
		if sess.Status != StatusActive {
			return ErrSessionClosed
		}
		if sess.deadlinePassed(s.now()) {
			return ErrDeadlinePassed
		}

		now := s.now()
		if i, ok := sess.orderIndex(name); ok {
			sess.Orders[i].Items = clean
			sess.Orders[i].SubmittedAt = now
			if caller.ID != "" {
				sess.Orders[i].ParticipantID = caller.ID
			}
		} else {
			sess.Orders = append(sess.Orders, ParticipantOrder{
				ParticipantID:   caller.ID,
				ParticipantName: name,
				Items:           clean,
				Payment:         NewPaymentState(),
				SubmittedAt:     now,
			})
		}

		*evs = append(*evs, ordersUpdated(sess))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session.order.submit", "session_id", sessionID, "participant", name, "items", len(clean))
	return snap, nil
}

// EditOrder corrects an existing order's items, including the per-item
// unavailable flag. It is not gated by the ordering deadline (host
// corrections happen after close of submissions) and never touches payment.
func (s *Service) EditOrder(ctx context.Context, sessionID, participantName string, items []LineItem) (*Snapshot, error) {
	clean, err := normalizeItems(items)
	if err != nil {
		return nil, err
	}

	snap, err := s.mutate(ctx, sessionID, func(sess *Session, evs *[]Event) error {
		if sess.Status != StatusActive {
			return ErrSessionClosed
		}
		i, ok := sess.orderIndex(participantName)
		if !ok {
			return ErrOrderNotFound
		}
		sess.Orders[i].Items = clean

		*evs = append(*evs, ordersUpdated(sess))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session.order.edit", "session_id", sessionID, "participant", participantName)
	return snap, nil
}

// DeleteOrder removes a participant's order from the ledger.
func (s *Service) DeleteOrder(ctx context.Context, sessionID, participantName string) (*Snapshot, error) {
	snap, err := s.mutate(ctx, sessionID, func(sess *Session, evs *[]Event) error {
		if sess.Status != StatusActive {
			return ErrSessionClosed
		}
		i, ok := sess.orderIndex(participantName)
		if !ok {
			return ErrOrderNotFound
		}
		sess.Orders = append(sess.Orders[:i], sess.Orders[i+1:]...)

		*evs = append(*evs, ordersUpdated(sess))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session.order.delete", "session_id", sessionID, "participant", participantName)
	return snap, nil
}

// UpdatePayment records a settlement status change for one order. Settlement
// stays available after the window closes: that is when people actually pay.
func (s *Service) UpdatePayment(ctx context.Context, sessionID string, caller Identity, participantName string, status PaymentStatus, method PaymentMethod, paidBy string) (*Snapshot, error) {
	if !ValidPaymentStatus(status) {
		return nil, invalidf("status", "unknown payment status %q", status)
	}
	if method != "" && !ValidPaymentMethod(method) {
		return nil, invalidf("method", "unknown payment method %q", method)
	}

	snap, err := s.mutate(ctx, sessionID, func(sess *Session, evs *[]Event) error {
		i, ok := sess.orderIndex(participantName)
		if !ok {
			return ErrOrderNotFound
		}
		sess.Orders[i].Payment.Apply(status, method, paidBy, caller.Name, s.now())

		*evs = append(*evs, ordersUpdated(sess))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session.payment.update", "session_id", sessionID, "participant", participantName, "status", string(status))
	return snap, nil
}

// ConfirmPayment records the host's acknowledgment of one order's settlement.
// Host-only. A pending payment record is promoted to paid before confirming.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID string, caller Identity, participantName string) (*Snapshot, error) {
	snap, err := s.mutate(ctx, sessionID, func(sess *Session, evs *[]Event) error {
		if sess.HostID != caller.ID {
			return ErrForbidden
		}
		i, ok := sess.orderIndex(participantName)
		if !ok {
			return ErrOrderNotFound
		}

		p := &sess.Orders[i].Payment
		if !p.Settled() {
			p.Apply(PaymentPaid, MethodTransfer, participantName, participantName, s.now())
		}
		p.Confirm()

		*evs = append(*evs, ordersUpdated(sess))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session.payment.confirm", "session_id", sessionID, "participant", participantName)
	return snap, nil
}

// TreatAll is the target list value selecting every current participant.
const TreatAll = "all"

// Treat marks the targeted participants as owed nothing: the host covers
// them. Host-only. Overwrites any prior payment status, paid included —
// treat always wins. Returns how many orders were treated.
func (s *Service) Treat(ctx context.Context, sessionID string, caller Identity, targets []string) (*Snapshot, int, error) {
	treated := 0
	snap, err := s.mutate(ctx, sessionID, func(sess *Session, evs *[]Event) error {
		if sess.HostID != caller.ID {
			return ErrForbidden
		}

		now := s.now()
		for _, name := range resolveTreatTargets(sess, targets) {
			i, ok := sess.orderIndex(name)
			if !ok {
				continue
			}
			sess.Orders[i].Payment = TreatedBy(sess.HostName, now)
			treated++
		}

		*evs = append(*evs, ordersUpdated(sess))
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.log.Info("session.treat", "session_id", sessionID, "treated", treated)
	return snap, treated, nil
}

func resolveTreatTargets(sess *Session, targets []string) []string {
	for _, t := range targets {
		if t == TreatAll {
			all := make([]string, 0, len(sess.Orders))
			for _, o := range sess.Orders {
				all = append(all, o.ParticipantName)
			}
			return all
		}
	}
	return targets
}

// ChangeDeliveryFee updates the shared fee; every participant's delivery
// share follows on the next cost derivation.
func (s *Service) ChangeDeliveryFee(ctx context.Context, sessionID string, fee float64) (*Snapshot, error) {
	if fee < 0 {
		return nil, invalidf("delivery_fee", "must be >= 0, got %v", fee)
	}

	snap, err := s.mutate(ctx, sessionID, func(sess *Session, evs *[]Event) error {
		if sess.Status != StatusActive {
			return ErrSessionClosed
		}
		sess.DeliveryFee = fee

		*evs = append(*evs, feeUpdated(fee), ordersUpdated(sess))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session.fee.change", "session_id", sessionID, "delivery_fee", fee)
	return snap, nil
}

// ChangeRestaurant updates the linked restaurant reference. A non-empty
// reference must resolve via the restaurant lookup; empty clears the link.
func (s *Service) ChangeRestaurant(ctx context.Context, sessionID, restaurantRef string) (*Snapshot, error) {
	if restaurantRef != "" {
		if err := s.checkRestaurant(ctx, restaurantRef); err != nil {
			return nil, err
		}
	}

	snap, err := s.mutate(ctx, sessionID, func(sess *Session, evs *[]Event) error {
		if sess.Status != StatusActive {
			return ErrSessionClosed
		}
		sess.RestaurantRef = restaurantRef

		*evs = append(*evs, restaurantUpdated(restaurantRef))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session.restaurant.change", "session_id", sessionID, "restaurant_ref", restaurantRef)
	return snap, nil
}

func (s *Service) checkRestaurant(ctx context.Context, ref string) error {
	if s.restaurants == nil {
		return nil
	}
	ok, err := s.restaurants.Exists(ctx, ref)
	if err != nil {
		return fmt.Errorf("restaurant lookup: %w", err)
	}
	if !ok {
		return ErrRestaurantNotFound
	}
	return nil
}

// Close ends the ordering window. One-way and idempotent: closing an already
// closed session changes nothing and publishes nothing. Participants with a
// known identity get a best-effort settlement nudge.
func (s *Service) Close(ctx context.Context, sessionID string) (*Snapshot, error) {
	var recipients []string

	snap, err := s.mutate(ctx, sessionID, func(sess *Session, evs *[]Event) error {
		if sess.Status == StatusClosed {
			return nil
		}
		sess.Status = StatusClosed

		for _, o := range sess.Orders {
			if o.ParticipantID != "" && o.ParticipantID != sess.HostID {
				recipients = append(recipients, o.ParticipantID)
			}
		}

		*evs = append(*evs, sessionClosed())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.nudgeSettlement(ctx, snap.Session, recipients)

	s.log.Info("session.close", "session_id", sessionID)
	return snap, nil
}

// nudgeSettlement pushes a "time to settle" note to each participant.
// Best-effort: failures are logged and dropped.
func (s *Service) nudgeSettlement(ctx context.Context, sess *Session, recipients []string) {
	if s.pusher == nil || len(recipients) == 0 {
		return
	}

	title := "Order closed"
	body := fmt.Sprintf("%s closed the group order. Settle up via %s.", sess.HostName, sess.HostPaymentTarget)
	for _, id := range recipients {
		if err := s.pusher.Push(ctx, id, title, body); err != nil {
			s.log.Warn("session.nudge.fail", "session_id", sess.ID, "recipient", id, "err", err)
		}
	}
}
