package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/logship/internal/domain"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSource_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	src, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	path := filepath.Join(dir, "log.db")
	if err := os.WriteFile(path, []byte("one"), 0o600); err != nil {
		t.Fatal(err)
	}

	var seen []domain.FileEvent
	waitFor(t, func() bool {
		seen = append(seen, src.Drain()...)
		for _, ev := range seen {
			if ev.Kind == domain.FileModified && filepath.Base(ev.Name) == "log.db" {
				return true
			}
		}
		return false
	}, "no modify event for log.db")

	if !src.Valid() {
		t.Fatal("Valid() = false for existing directory")
	}
}

func TestSource_DrainDoesNotBlock(t *testing.T) {
	src, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	done := make(chan struct{})
	go func() {
		src.Drain()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Drain() blocked on an idle directory")
	}
}

func TestSource_InvalidAfterDirectoryRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	if err := os.Mkdir(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	src, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		src.Drain()
		return !src.Valid()
	}, "source still valid after directory removal")
}

func TestSource_OpenMissingDirectory(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Fatal("Open() on missing directory succeeded")
	}
}

func TestSource_CloseIsIdempotent(t *testing.T) {
	src, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if src.Valid() {
		t.Fatal("Valid() = true after Close")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		op     fsnotify.Op
		want   domain.FileEventKind
		wantOK bool
	}{
		{fsnotify.Write, domain.FileModified, true},
		{fsnotify.Create, domain.FileCreated, true},
		{fsnotify.Remove, domain.FileRemoved, true},
		{fsnotify.Rename, domain.FileRenamed, true},
		{fsnotify.Create | fsnotify.Write, domain.FileCreated, true},
		{fsnotify.Chmod, 0, false},
	}
	for _, tt := range tests {
		got, ok := kindOf(tt.op)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("kindOf(%v) = %v, %v; want %v, %v", tt.op, got, ok, tt.want, tt.wantOK)
		}
	}
}
