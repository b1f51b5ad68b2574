package pdf

import "errors"

// Sentinel errors shared across the extraction and editing layers.
// Callers match them with errors.Is.
var (
	// ErrNotFound indicates a lookup matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPattern indicates a malformed regular expression.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrIndexOutOfRange indicates a page or table index outside the
	// document.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrMalformedPage indicates a page whose dictionary or content
	// stream could not be decoded.
	ErrMalformedPage = errors.New("malformed page")
)
