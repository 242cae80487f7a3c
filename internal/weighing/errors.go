package weighing

import "errors"

// Error taxonomy for weighing operations. Handlers map these onto HTTP
// status codes; everything else wraps one of them.
var (
	// ErrValidation - a required reference is missing or the requested
	// transition is not allowed. Blocks the operation, nothing persisted.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound - the referenced weighing record does not exist.
	ErrNotFound = errors.New("weighing record not found")

	// ErrDevice - no usable weight is available from the scale.
	ErrDevice = errors.New("scale device unavailable")

	// ErrPersistence - the store rejected a write; the transition was
	// aborted and nothing was saved.
	ErrPersistence = errors.New("persistence failed")
)
