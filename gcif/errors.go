package gcif

import "errors"

// Sentinel errors for the five kinds named in §7, wrapped with
// fmt.Errorf("gcif: ...: %w", ...) at each call site — the same
// package-level-var idiom deepteams-webp uses for ErrImageTooLarge,
// ErrEncoding, and ErrBadSignature.
var (
	ErrInputInvalid           = errors.New("input invalid")
	ErrStreamTruncated        = errors.New("stream truncated")
	ErrStreamCorrupt          = errors.New("stream corrupt")
	ErrLZOutOfBounds          = errors.New("lz copy out of bounds")
	ErrInternalBudgetExceeded = errors.New("internal budget exceeded")
)
