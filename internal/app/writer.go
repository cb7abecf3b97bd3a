package app

import (
	"context"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/metrics"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// Writer is the application-facing entry point. Writes are synchronous and
// never report failure to the caller: a failed insert is logged by the store
// and counted here.
type Writer struct {
	store   ports.EntryStore
	logger  ports.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	closed  atomic.Bool
}

// NewWriter returns a Writer inserting into store. now may be nil.
func NewWriter(store ports.EntryStore, logger ports.Logger, m *metrics.Metrics, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{
		store:   store,
		logger:  log.Named(logger, "writer"),
		metrics: m,
		now:     now,
	}
}

// WriteLog records message at severity, attributed to the calling package
// and receiver type.
func (w *Writer) WriteLog(severity domain.Severity, message string) {
	w.WriteEntry(context.Background(), severity, callerOrigin(2), message)
}

func (w *Writer) Info(message string) {
	w.WriteEntry(context.Background(), domain.SeverityInfo, callerOrigin(2), message)
}

func (w *Writer) Warning(message string) {
	w.WriteEntry(context.Background(), domain.SeverityWarning, callerOrigin(2), message)
}

func (w *Writer) Severe(message string) {
	w.WriteEntry(context.Background(), domain.SeveritySevere, callerOrigin(2), message)
}

// Close turns every later write into a no-op.
func (w *Writer) Close() {
	w.closed.Store(true)
}

// Closed reports whether Close has been called.
func (w *Writer) Closed() bool {
	return w.closed.Load()
}

// WriteEntry records message with an explicit origin. It reports whether the
// entry was stored.
func (w *Writer) WriteEntry(ctx context.Context, severity domain.Severity, origin, message string) bool {
	if w.closed.Load() {
		return false
	}
	entry := domain.NewEntry(w.now(), severity, origin, message)
	if _, err := w.store.Insert(ctx, entry); err != nil {
		w.metrics.WriteFailed()
		return false
	}
	w.metrics.EntryWritten(entry.SeverityName)
	return true
}

// callerOrigin returns the origin of the function skip frames above it.
func callerOrigin(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return OriginFromPC(pc)
}

// OriginFromPC returns the origin for the function containing pc.
func OriginFromPC(pc uintptr) string {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	return OriginFromFuncName(fn.Name())
}

// OriginFromFuncName reduces a fully qualified function name to its package
// path, plus the receiver type in parentheses for methods:
//
//	example.com/app/billing.(*Invoice).Charge -> example.com/app/billing.(Invoice)
//	example.com/app/billing.Invoice.Total     -> example.com/app/billing.(Invoice)
//	example.com/app/billing.process.func1     -> example.com/app/billing
func OriginFromFuncName(name string) string {
	if name == "" {
		return "unknown"
	}
	slash := strings.LastIndexByte(name, '/')
	dot := strings.IndexByte(name[slash+1:], '.')
	if dot < 0 {
		return name
	}
	pkg := name[:slash+1+dot]
	rest := name[slash+1+dot+1:]

	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return pkg
		}
		return pkg + ".(" + strings.TrimPrefix(rest[1:end], "*") + ")"
	}

	// Value receivers have no parentheses: Type.Method, as opposed to
	// fn.func1 for closures.
	recv, member, ok := strings.Cut(rest, ".")
	if !ok || isGeneratedName(member) {
		return pkg
	}
	return pkg + ".(" + recv + ")"
}

// isGeneratedName reports whether a name segment was made up by the compiler
// for a closure or wrapper.
func isGeneratedName(seg string) bool {
	seg, _, _ = strings.Cut(seg, ".")
	for _, prefix := range []string{"func", "gowrap", "deferwrap"} {
		if rest, ok := strings.CutPrefix(seg, prefix); ok && isDigits(rest) {
			return true
		}
	}
	return isDigits(seg)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
