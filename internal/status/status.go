package status

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks a malformed or incomplete booking request.
	// Rejected before any state change.
	ErrValidation = errors.New("validation: invalid request")

	// ErrAuthorization marks a caller without rights over the booking or event.
	ErrAuthorization = errors.New("authorization: access denied")

	// ErrConflict marks a state-machine violation: cancellation inside the
	// cutoff window, re-check-in of a used ticket, duplicate pending transaction.
	ErrConflict = errors.New("conflict: operation not allowed in current state")

	// ErrGateway marks a failed or timed out external payment call. Local
	// state stays whatever it was before the call.
	ErrGateway = errors.New("gateway: payment provider call failed")

	// ErrUnknownReference marks a verify/webhook reference with no matching
	// transaction.
	ErrUnknownReference = errors.New("reconcile: unknown transaction reference")

	// ErrNotFound marks a missing booking, event or ticket.
	ErrNotFound = errors.New("not found")
)

// InsufficientInventoryError lists every tier that cannot satisfy the
// requested quantity. No partial reservation happens when it is returned.
type InsufficientInventoryError struct {
	Shortages []TierShortage
}

type TierShortage struct {
	Tier      string `json:"tier"`
	Requested int    `json:"requested"`
	Remaining int    `json:"remaining"`
}

func (e *InsufficientInventoryError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s: requested %d, remaining %d", s.Tier, s.Requested, s.Remaining))
	}
	return "insufficient inventory: " + strings.Join(parts, "; ")
}

// IsInsufficientInventory reports whether err is an inventory shortage.
func IsInsufficientInventory(err error) bool {
	var e *InsufficientInventoryError
	return errors.As(err, &e)
}

// Validationf wraps ErrValidation with a caller message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Conflictf wraps ErrConflict with a caller message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}
