package store

import "errors"

var (
	// ErrDocumentNotFound means no outline has been initialized at the store
	// path. Callers must run init first.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentCorrupt means the store file exists but does not decode into
	// a valid outline document.
	ErrDocumentCorrupt = errors.New("document corrupt")

	// ErrMissingToken means no pending edit token exists for the presented
	// value: never minted, already spent, or expired.
	ErrMissingToken = errors.New("missing edit token")

	// ErrInvalidToken means the token exists but its purpose or scope does not
	// match the attempted mutation.
	ErrInvalidToken = errors.New("invalid edit token")

	// ErrStaleToken means the scoped node's fingerprint changed between mint
	// and presentation; the tree moved underneath the caller.
	ErrStaleToken = errors.New("stale edit token")
)
