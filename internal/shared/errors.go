package shared

import "errors"

// Sentinel errors shared across modules. Handlers translate these into
// problem responses; they never reach a client verbatim.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials covers every login failure: unknown email,
	// inactive account and wrong password all map here so responses do not
	// leak which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when a mutating request carries no token.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the supplied token fails verification.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
