package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
)

// memStore is an in-memory ports.EntryStore.
type memStore struct {
	mu        sync.Mutex
	entries   []domain.Entry
	nextID    int64
	insertErr error
	markErr   error
	markCalls []domain.Severity
}

func (s *memStore) Insert(_ context.Context, e domain.Entry) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return domain.Entry{}, s.insertErr
	}
	s.nextID++
	e.ID = s.nextID
	e.Sent = false
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *memStore) Each(ctx context.Context, min domain.Severity, sent bool, fn func(domain.Entry) bool) error {
	s.mu.Lock()
	snapshot := append([]domain.Entry(nil), s.entries...)
	s.mu.Unlock()
	for _, e := range snapshot {
		if e.Severity >= min && e.Sent == sent {
			if !fn(e) {
				return nil
			}
		}
	}
	return nil
}

func (s *memStore) MarkSent(_ context.Context, min domain.Severity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCalls = append(s.markCalls, min)
	if s.markErr != nil {
		return 0, s.markErr
	}
	var n int64
	for i := range s.entries {
		if s.entries[i].Severity >= min && !s.entries[i].Sent {
			s.entries[i].Sent = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) Path() string { return "/tmp/log/log.db" }
func (s *memStore) Close() error { return nil }

func (s *memStore) query(min domain.Severity, sent bool) []domain.Entry {
	var out []domain.Entry
	_ = s.Each(context.Background(), min, sent, func(e domain.Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

func (s *memStore) add(sev domain.Severity, msg string) domain.Entry {
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	e, _ := s.Insert(context.Background(), domain.NewEntry(now, sev, "example.com/app.(Svc)", msg))
	return e
}

// fakeSource is a ports.EventSource fed by the test.
type fakeSource struct {
	mu      sync.Mutex
	events  []domain.FileEvent
	invalid bool
	closed  int
}

func (f *fakeSource) push(evs ...domain.FileEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evs...)
}

func (f *fakeSource) invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalid = true
}

func (f *fakeSource) Drain() []domain.FileEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.events
	f.events = nil
	return out
}

func (f *fakeSource) Valid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.invalid
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeSource) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func sourceFactory(src *fakeSource) ports.EventSourceFactory {
	return func(string) (ports.EventSource, error) { return src, nil }
}

// recordingSink collects forwarded text.
type recordingSink struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingSink) Send(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recordingSink) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

// fakeTransport records messages. When block is set, Send signals entered
// and waits for block to be closed.
type fakeTransport struct {
	mu      sync.Mutex
	msgs    []domain.Message
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeTransport) Send(ctx context.Context, msg domain.Message) error {
	if f.block != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeTransport) Messages() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Message(nil), f.msgs...)
}

// recordingEmitter implements SendEventEmitter.
type recordingEmitter struct {
	mu        sync.Mutex
	successes []int64
	failures  []error
}

func (r *recordingEmitter) OnSendSuccess(marked int64, bytes int, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, marked)
}

func (r *recordingEmitter) OnSendError(err error, bytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

var errSendFailed = errors.New("relay refused")

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
