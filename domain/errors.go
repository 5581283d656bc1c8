package domain

import "errors"

// Error taxonomy shared across services and handlers. Services wrap these
// with %w so callers can errors.Is against the category.
var (
	// ErrValidation covers malformed contexts, unknown action types and
	// out-of-range ratings. Nothing is written when it fires.
	ErrValidation = errors.New("validation error")

	// ErrNotFound covers missing books, impressions or arms.
	ErrNotFound = errors.New("not found")

	// ErrNumericInstability means an arm's A matrix could not be inverted.
	// The arm is degraded and skipped, never fatal to selection.
	ErrNumericInstability = errors.New("numeric instability")

	// ErrAttributionConflict means an action was already attributed. The
	// duplicate attempt is a no-op.
	ErrAttributionConflict = errors.New("action already attributed")
)
