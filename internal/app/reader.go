package app

import (
	"context"
	"iter"
	"strings"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// Reader renders stored entries as text blocks.
type Reader struct {
	store  ports.EntryStore
	logger ports.Logger
}

// NewReader returns a Reader over store.
func NewReader(store ports.EntryStore, logger ports.Logger) *Reader {
	return &Reader{store: store, logger: log.Named(logger, "reader")}
}

// Blocks yields one formatted block per entry with Severity >= minSeverity
// and the given sent flag. Each range over the sequence queries the store
// again. A store error ends the sequence early and is logged.
func (r *Reader) Blocks(ctx context.Context, minSeverity domain.Severity, sent bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		err := r.store.Each(ctx, minSeverity, sent, func(e domain.Entry) bool {
			return yield(e.Format())
		})
		if err != nil {
			r.logger.Error("Failed to read entries", ports.Err(err))
		}
	}
}

// Read returns every matching block concatenated, or "" when nothing
// matches or the store cannot be read.
func (r *Reader) Read(ctx context.Context, minSeverity domain.Severity, sent bool) string {
	var b strings.Builder
	err := r.store.Each(ctx, minSeverity, sent, func(e domain.Entry) bool {
		e.AppendTo(&b)
		return true
	})
	if err != nil {
		r.logger.Error("Failed to read entries", ports.Err(err))
		return ""
	}
	return b.String()
}
