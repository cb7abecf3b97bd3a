package app

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestBuffer_AppendDrain(t *testing.T) {
	b := NewBuffer(nil)

	if got := b.Drain(); got != "" {
		t.Fatalf("Drain() on empty buffer = %q", got)
	}

	b.Append("INFO:\nfirst\n\n")
	n := b.Append("WARNING:\nsecond\n\n")
	if n != b.Len() {
		t.Fatalf("Append() returned %d, Len() = %d", n, b.Len())
	}
	if b.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", b.Pending())
	}

	if got, want := b.Drain(), "INFO:\nfirst\n\nWARNING:\nsecond\n\n"; got != want {
		t.Fatalf("Drain() = %q, want %q", got, want)
	}
	if b.Len() != 0 || b.Pending() != 0 {
		t.Fatalf("buffer not empty after Drain: len=%d pending=%d", b.Len(), b.Pending())
	}
}

func TestBuffer_SinceLastDrain(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	b := NewBuffer(clock)

	now = now.Add(45 * time.Second)
	if got := b.SinceLastDrain(); got != 45*time.Second {
		t.Fatalf("SinceLastDrain() = %v, want 45s", got)
	}

	b.Drain()
	now = now.Add(time.Second)
	if got := b.SinceLastDrain(); got != time.Second {
		t.Fatalf("SinceLastDrain() after drain = %v, want 1s", got)
	}
}

// Concurrent appenders and drainers: every appended piece ends up in exactly
// one drain, whole and unsplit.
func TestBuffer_ConcurrentAppendAndDrain(t *testing.T) {
	b := NewBuffer(nil)
	const writers, perWriter = 8, 200

	var (
		mu      sync.Mutex
		drained strings.Builder
		wg      sync.WaitGroup
		stop    = make(chan struct{})
		drainer = make(chan struct{})
	)

	go func() {
		defer close(drainer)
		for {
			select {
			case <-stop:
				return
			default:
			}
			s := b.Drain()
			mu.Lock()
			drained.WriteString(s)
			mu.Unlock()
		}
	}()

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				b.Append(fmt.Sprintf("<%d:%d>", w, i))
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	<-drainer
	drained.WriteString(b.Drain())

	out := drained.String()
	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			piece := fmt.Sprintf("<%d:%d>", w, i)
			if c := strings.Count(out, piece); c != 1 {
				t.Fatalf("piece %s drained %d times, want 1", piece, c)
			}
		}
	}
}
