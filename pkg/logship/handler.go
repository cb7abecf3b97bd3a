package logship

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bft-labs/logship/internal/app"
	"github.com/bft-labs/logship/internal/domain"
)

// Handler is a slog.Handler that records into a Logship store. Attributes
// are appended to the message as key=value pairs; the origin is taken from
// the record's PC.
type Handler struct {
	writer *app.Writer
	level  slog.Leveler
	attrs  string
	prefix string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a handler writing through w. A nil level means
// slog.LevelInfo.
func NewHandler(w *app.Writer, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{writer: w, level: level}
}

// Handler returns a slog.Handler recording into this instance.
func (l *Logship) Handler(level slog.Leveler) *Handler {
	return NewHandler(l.writer, level)
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return !h.writer.Closed() && level >= h.level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})

	origin := "unknown"
	if r.PC != 0 {
		origin = app.OriginFromPC(r.PC)
	}
	h.writer.WriteEntry(ctx, domain.SeverityFromSlog(r.Level), origin, b.String())
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	h2 := *h
	h2.attrs = b.String()
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return
		}
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range group {
			appendAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(a.Value.String()))
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
