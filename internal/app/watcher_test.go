package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/logship/internal/domain"
)

func modify(name string) domain.FileEvent {
	return domain.FileEvent{Name: name, Kind: domain.FileModified}
}

func newTestWatcher(t *testing.T, store *memStore, src *fakeSource, sink *recordingSink, poll time.Duration) (*Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.db")
	w := NewWatcher(WatcherConfig{
		StorePath:    path,
		PollInterval: poll,
		OpenSource:   sourceFactory(src),
	}, NewReader(store, nil), sink, nil, nil)
	return w, path
}

func TestWatcher_BurstForwardsOnce(t *testing.T) {
	store := &memStore{}
	store.add(domain.SeverityWarning, "disk at 91%")
	store.add(domain.SeverityInfo, "cache warmed")
	store.add(domain.SeveritySevere, "payment failed")

	src := &fakeSource{}
	sink := &recordingSink{}
	w, path := newTestWatcher(t, store, src, sink, time.Hour)

	for i := 0; i < 25; i++ {
		src.push(modify(path))
	}
	src.push(modify(path + "-journal"))

	if !w.pollOnce(context.Background(), src, domain.SeverityWarning) {
		t.Fatal("pollOnce() reported invalid source")
	}

	texts := sink.Texts()
	if len(texts) != 1 {
		t.Fatalf("sink received %d sends, want 1", len(texts))
	}
	if strings.Count(texts[0], ":\n") != 2 {
		t.Fatalf("forwarded text has wrong number of blocks:\n%s", texts[0])
	}
	if !strings.Contains(texts[0], "disk at 91%") || !strings.Contains(texts[0], "payment failed") {
		t.Fatalf("forwarded text missing entries:\n%s", texts[0])
	}
	if strings.Contains(texts[0], "cache warmed") {
		t.Fatalf("forwarded text contains entry below threshold:\n%s", texts[0])
	}

	// No new events, no new forward.
	w.pollOnce(context.Background(), src, domain.SeverityWarning)
	if got := len(sink.Texts()); got != 1 {
		t.Fatalf("sink received %d sends after quiet poll, want 1", got)
	}

	// The flag resets each poll.
	src.push(modify(path))
	w.pollOnce(context.Background(), src, domain.SeverityWarning)
	if got := len(sink.Texts()); got != 2 {
		t.Fatalf("sink received %d sends after second burst, want 2", got)
	}
}

func TestWatcher_IgnoresUnrelatedEvents(t *testing.T) {
	store := &memStore{}
	store.add(domain.SeveritySevere, "boom")

	src := &fakeSource{}
	sink := &recordingSink{}
	w, path := newTestWatcher(t, store, src, sink, time.Hour)
	dir := filepath.Dir(path)

	src.push(
		domain.FileEvent{Kind: domain.FileOverflow},
		modify(filepath.Join(dir, "other.db")),
		modify(filepath.Join(dir, "log.db.bak")),
		domain.FileEvent{Name: path, Kind: domain.FileCreated},
		domain.FileEvent{Name: path, Kind: domain.FileRemoved},
	)
	w.pollOnce(context.Background(), src, domain.SeverityFinest)

	if got := sink.Texts(); len(got) != 0 {
		t.Fatalf("sink received %v, want nothing", got)
	}
}

func TestWatcher_NothingUnsentForwardsNothing(t *testing.T) {
	store := &memStore{}
	store.add(domain.SeverityInfo, "below threshold")

	src := &fakeSource{}
	sink := &recordingSink{}
	w, path := newTestWatcher(t, store, src, sink, time.Hour)

	src.push(modify(path))
	w.pollOnce(context.Background(), src, domain.SeverityWarning)

	if got := sink.Texts(); len(got) != 0 {
		t.Fatalf("sink received %v, want nothing", got)
	}
}

func TestWatcher_RegisterUnregister(t *testing.T) {
	src := &fakeSource{}
	w, _ := newTestWatcher(t, &memStore{}, src, &recordingSink{}, time.Hour)
	ctx := context.Background()

	// Safe before any registration.
	w.Unregister()

	if err := w.Register(ctx, domain.SeverityWarning); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !w.Registered() {
		t.Fatal("Registered() = false after Register")
	}
	if err := w.Register(ctx, domain.SeverityWarning); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("second Register() error = %v, want ErrAlreadyRunning", err)
	}

	w.Unregister()
	w.Unregister()
	if w.Registered() {
		t.Fatal("Registered() = true after Unregister")
	}
	if src.closeCount() != 1 {
		t.Fatalf("source closed %d times, want 1", src.closeCount())
	}

	if err := w.Register(ctx, domain.SeverityWarning); err != nil {
		t.Fatalf("Register() after Unregister error = %v", err)
	}
	w.Unregister()
}

func TestWatcher_RegisterMissingDirectory(t *testing.T) {
	w := NewWatcher(WatcherConfig{
		StorePath:  filepath.Join(t.TempDir(), "missing", "log.db"),
		OpenSource: sourceFactory(&fakeSource{}),
	}, NewReader(&memStore{}, nil), &recordingSink{}, nil, nil)

	err := w.Register(context.Background(), domain.SeverityWarning)
	if !errors.Is(err, domain.ErrWatchTarget) {
		t.Fatalf("Register() error = %v, want ErrWatchTarget", err)
	}
	if w.Registered() {
		t.Fatal("Registered() = true after failed Register")
	}
}

func TestWatcher_PollLoopForwards(t *testing.T) {
	store := &memStore{}
	store.add(domain.SeverityWarning, "queue backlog")

	src := &fakeSource{}
	sink := &recordingSink{}
	w, path := newTestWatcher(t, store, src, sink, 5*time.Millisecond)

	if err := w.Register(context.Background(), domain.SeverityWarning); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer w.Unregister()

	src.push(modify(path), modify(path))
	eventually(t, func() bool { return len(sink.Texts()) == 1 }, "poll loop did not forward entries")
}

func TestWatcher_InvalidSourceUnregistersItself(t *testing.T) {
	src := &fakeSource{}
	var hookCalls atomic.Int32
	w := NewWatcher(WatcherConfig{
		StorePath:      filepath.Join(t.TempDir(), "log.db"),
		PollInterval:   5 * time.Millisecond,
		OpenSource:     sourceFactory(src),
		OnUnregistered: func() { hookCalls.Add(1) },
	}, NewReader(&memStore{}, nil), &recordingSink{}, nil, nil)

	if err := w.Register(context.Background(), domain.SeverityWarning); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	src.invalidate()

	eventually(t, func() bool { return !w.Registered() }, "watcher did not unregister after source became invalid")
	eventually(t, func() bool { return hookCalls.Load() == 1 }, "OnUnregistered hook not called")
	if src.closeCount() != 1 {
		t.Fatalf("source closed %d times, want 1", src.closeCount())
	}

	// Explicit Unregister afterwards is a no-op.
	w.Unregister()
	if src.closeCount() != 1 {
		t.Fatalf("source closed %d times after Unregister, want 1", src.closeCount())
	}
}
