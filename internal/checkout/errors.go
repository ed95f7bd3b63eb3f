package checkout

import (
	"errors"
	"fmt"
)

// ValidationError is blocking, surfaced immediately and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

var (
	// ErrNothingToRestore: checkout loaded with a payment_failed marker but
	// no failed attempt is recorded.
	ErrNothingToRestore = errors.New("no failed payment attempt to restore")

	// ErrRestorationAbandoned: the bounded restoration counter was exceeded;
	// the payment record has been cleared and no further restore will run.
	ErrRestorationAbandoned = errors.New("checkout restoration abandoned after too many attempts")

	// ErrSnapshotInvalid: the persisted snapshot does not describe a
	// plausibly orderable checkout.
	ErrSnapshotInvalid = errors.New("persisted checkout snapshot is not restorable")
)
