package domain

import (
	"strings"
	"time"
)

// Layouts used for the Date and Time columns.
const (
	DateLayout = "02 Jan 2006"
	TimeLayout = "15:04:05"
)

// Entry is one logged event.
type Entry struct {
	// ID is the storage row id; zero until the entry has been inserted.
	ID int64

	// Time is the wall-clock time of day the entry was written.
	Time string

	// Date is the calendar date the entry was written.
	Date string

	Severity     Severity
	SeverityName string

	// Origin identifies the writing code: package path plus receiver type
	// when the caller was a method.
	Origin string

	Message string

	// Sent moves from false to true once, after a successful delivery.
	Sent bool
}

// NewEntry stamps a new unsent entry at now.
func NewEntry(now time.Time, severity Severity, origin, message string) Entry {
	return Entry{
		Time:         now.Format(TimeLayout),
		Date:         now.Format(DateLayout),
		Severity:     severity,
		SeverityName: severity.String(),
		Origin:       origin,
		Message:      message,
	}
}

// Format renders the entry as a text block terminated by a blank line:
//
//	WARNING:
//	19 Oct 2026 10:04:05 example.com/app/billing.(Invoice)
//	payment gateway timeout
func (e Entry) Format() string {
	var b strings.Builder
	b.Grow(len(e.Message) + len(e.Origin) + 48)
	e.AppendTo(&b)
	return b.String()
}

// AppendTo appends the formatted block to b.
func (e Entry) AppendTo(b *strings.Builder) {
	b.WriteString(e.SeverityName)
	b.WriteString(":\n")
	b.WriteString(e.Date)
	b.WriteByte(' ')
	b.WriteString(e.Time)
	b.WriteByte(' ')
	b.WriteString(e.Origin)
	b.WriteByte('\n')
	b.WriteString(e.Message)
	b.WriteString("\n\n")
}
