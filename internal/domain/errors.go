package domain

import "errors"

// Domain errors represent error conditions in the logship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running service.
	ErrAlreadyRunning = errors.New("logship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped service.
	ErrNotRunning = errors.New("logship: not running")

	// ErrShutdownTimeout is returned when an in-flight flush outlives the
	// shutdown timeout.
	ErrShutdownTimeout = errors.New("logship: shutdown timeout")

	// ErrInvalidConfig is returned when delivery settings fail validation.
	ErrInvalidConfig = errors.New("logship: invalid configuration")

	// ErrStoreUnrecoverable is returned when a damaged store can be neither
	// deleted nor recreated.
	ErrStoreUnrecoverable = errors.New("logship: store unrecoverable")

	// ErrWatchTarget is returned when the store directory cannot be watched.
	ErrWatchTarget = errors.New("logship: cannot watch store directory")

	// ErrClosed is returned by operations on a torn-down service.
	ErrClosed = errors.New("logship: closed")
)
