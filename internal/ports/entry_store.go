package ports

import (
	"context"

	"github.com/bft-labs/logship/internal/domain"
)

// EntryStore is the encrypted local store of log entries.
// Implementations serialize all operations; callers may use one store from
// many goroutines.
type EntryStore interface {
	// Insert writes one unsent entry and returns it with its storage ID.
	// The store may rotate itself before inserting.
	Insert(ctx context.Context, entry domain.Entry) (domain.Entry, error)

	// Each calls fn for every entry with Severity >= minSeverity and the
	// given sent flag, in storage order, until fn returns false.
	Each(ctx context.Context, minSeverity domain.Severity, sent bool, fn func(domain.Entry) bool) error

	// MarkSent flags every unsent entry with Severity >= minSeverity as sent
	// and returns how many rows changed. Calling it twice is harmless.
	MarkSent(ctx context.Context, minSeverity domain.Severity) (int64, error)

	// Path returns the store's backing file.
	Path() string

	// Close releases the handle. The next operation reopens it.
	Close() error
}
