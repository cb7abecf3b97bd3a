package ports

import "github.com/bft-labs/logship/internal/domain"

// EventSource reports filesystem changes inside one directory.
type EventSource interface {
	// Drain returns every event queued since the last call without blocking.
	Drain() []domain.FileEvent

	// Valid reports whether the directory is still being watched. It turns
	// false once the directory is removed or renamed.
	Valid() bool

	// Close stops watching. Safe to call more than once.
	Close() error
}

// EventSourceFactory opens an EventSource on dir.
type EventSourceFactory func(dir string) (EventSource, error)
