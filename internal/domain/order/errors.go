package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors surfaced by order operations.
var (
	ErrNotFound        = errors.New("order not found")
	ErrVersionConflict = errors.New("order was modified concurrently")
	ErrNotOwner        = errors.New("caller does not own this order")
	ErrNotDelivered    = errors.New("only delivered orders can be reviewed")
	ErrAlreadyReviewed = errors.New("order has already been reviewed")
)

// ValidationError indicates a malformed or missing input field. It is the
// caller's fault and retrying the same request will not succeed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError indicates a status-machine guard rejected the
// requested transition.
type InvalidTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s: %s", e.From, e.To, e.Reason)
}

// InvalidPaymentStateError indicates the payment lifecycle rejected the
// requested payment status change.
type InvalidPaymentStateError struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e *InvalidPaymentStateError) Error() string {
	return fmt.Sprintf("cannot move payment from %s to %s", e.From, e.To)
}
