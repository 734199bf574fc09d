// server/internal/pickup/errors.go
package pickup

import "errors"

// Sentinel errors for the pickup core. Handlers map these to HTTP status
// codes with errors.Is; wrapped messages carry the detail.
var (
	// ErrValidation covers malformed input and store-level unique
	// constraint violations.
	ErrValidation = errors.New("validation failed")

	// ErrUpload means the image could not be stored; nothing was persisted.
	ErrUpload = errors.New("image upload failed")

	// ErrScoring means both scoring attempts against the contamination
	// classifier failed; nothing was persisted.
	ErrScoring = errors.New("contamination scoring failed")

	ErrNotFound = errors.New("pickup not found")

	// ErrInvalidTransition is returned for any status change outside the
	// lifecycle table. The stored pickup is left untouched.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyClaimed is returned when the claim precondition does not
	// hold. A pickup claimed a moment ago and a pickup that never existed
	// produce the same error on purpose: callers cannot probe contention
	// timing through the claim endpoint.
	ErrAlreadyClaimed = errors.New("pickup already claimed or not found")
)
