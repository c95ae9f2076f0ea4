package export

import "errors"

// Sentinel errors for failure classification. Wrapped errors carry the
// underlying detail; callers test with errors.Is.
var (
	// ErrInvalidDocument means the input failed structural validation
	// before any page was processed
	ErrInvalidDocument = errors.New("invalid document")

	// ErrAborted means the export ended without a terminal event, which
	// happens when the context is cancelled mid-flight
	ErrAborted = errors.New("export aborted before completion")
)
