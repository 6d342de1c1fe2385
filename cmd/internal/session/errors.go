package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a session id does not resolve to a session.
	ErrNotFound = errors.New("session not found")

	// ErrOrderNotFound is returned when a participant name has no order in the ledger.
	ErrOrderNotFound = errors.New("order not found")

	// ErrForbidden is returned when a non-host caller attempts a host-only action.
	ErrForbidden = errors.New("host privileges required")

	// ErrSessionClosed is returned when a mutation is attempted against a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrDeadlinePassed is returned when an order submission arrives after the
	// ordering deadline. Host corrections are not gated by it.
	ErrDeadlinePassed = errors.New("ordering deadline passed")

	// ErrRestaurantNotFound is returned when a restaurant reference does not resolve.
	ErrRestaurantNotFound = errors.New("restaurant not found")
)

// ValidationError reports malformed or out-of-range input.
// Field names the violated field so callers can surface it verbatim.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAdmission reports whether err rejects an order on session state grounds
// (closed window or passed deadline) rather than on input validity. Callers
// use the distinction to show a different message.
func IsAdmission(err error) bool {
	return errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrDeadlinePassed)
}

// IsNotFound reports whether err is a missing-session or missing-order failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrRestaurantNotFound)
}
