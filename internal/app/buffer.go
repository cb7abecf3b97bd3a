package app

import (
	"strings"
	"sync"
	"time"
)

// Buffer accumulates formatted entry text between flushes.
// Every method is safe for concurrent use.
type Buffer struct {
	mu        sync.Mutex
	b         strings.Builder
	appends   int
	lastDrain time.Time
	now       func() time.Time
}

// NewBuffer returns an empty buffer. now may be nil to use time.Now.
func NewBuffer(now func() time.Time) *Buffer {
	if now == nil {
		now = time.Now
	}
	return &Buffer{now: now, lastDrain: now()}
}

// Append adds text and returns the buffered size in bytes.
func (b *Buffer) Append(text string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.b.WriteString(text)
	b.appends++
	return b.b.Len()
}

// Drain returns the buffered text and empties the buffer in one step.
// Text appended after Drain returns belongs to the next drain.
func (b *Buffer) Drain() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.b.String()
	b.b.Reset()
	b.appends = 0
	b.lastDrain = b.now()
	return out
}

// Len returns the buffered size in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Len()
}

// Pending returns the number of appends since the last drain.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appends
}

// SinceLastDrain returns the time elapsed since the last Drain, or since the
// buffer was created.
func (b *Buffer) SinceLastDrain() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Sub(b.lastDrain)
}
