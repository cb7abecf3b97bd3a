// Package notify adapts fsnotify to the event source the change watcher
// polls.
package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// DefaultBufferSize is the fsnotify event channel capacity. Events beyond it
// wait in the kernel queue until the next Drain.
const DefaultBufferSize = 256

// Source watches one directory. Events queue inside fsnotify between Drain
// calls.
type Source struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  ports.Logger

	mu      sync.Mutex
	invalid bool
	closed  bool
}

var _ ports.EventSource = (*Source)(nil)

// Open starts watching dir.
func Open(dir string, logger ports.Logger) (*Source, error) {
	dir = filepath.Clean(dir)
	w, err := fsnotify.NewBufferedWatcher(DefaultBufferSize)
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Source{
		dir:     dir,
		watcher: w,
		logger:  log.Named(logger, "notify"),
	}, nil
}

// Factory returns an EventSourceFactory that opens fsnotify sources.
func Factory(logger ports.Logger) ports.EventSourceFactory {
	return func(dir string) (ports.EventSource, error) {
		return Open(dir, logger)
	}
}

// Drain returns every queued event without blocking. A lost-events error
// from fsnotify becomes a FileOverflow event.
func (s *Source) Drain() []domain.FileEvent {
	var out []domain.FileEvent
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				s.markInvalid()
				return out
			}
			if s.isSelf(ev) {
				s.markInvalid()
			}
			if kind, ok := kindOf(ev.Op); ok {
				out = append(out, domain.FileEvent{Name: ev.Name, Kind: kind})
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				s.markInvalid()
				return out
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				out = append(out, domain.FileEvent{Kind: domain.FileOverflow})
				continue
			}
			s.logger.Warn("Watch error", ports.String("dir", s.dir), ports.Err(err))
		default:
			return out
		}
	}
}

// Valid reports whether the directory is still in place.
func (s *Source) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalid || s.closed {
		return false
	}
	info, err := os.Stat(s.dir)
	if err != nil || !info.IsDir() {
		s.invalid = true
	}
	return !s.invalid
}

// Close stops the fsnotify watcher. Later calls return nil.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.watcher.Close()
}

func (s *Source) markInvalid() {
	s.mu.Lock()
	s.invalid = true
	s.mu.Unlock()
}

// isSelf reports whether ev removes or renames the watched directory itself.
func (s *Source) isSelf(ev fsnotify.Event) bool {
	return filepath.Clean(ev.Name) == s.dir && (ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename))
}

func kindOf(op fsnotify.Op) (domain.FileEventKind, bool) {
	switch {
	case op.Has(fsnotify.Remove):
		return domain.FileRemoved, true
	case op.Has(fsnotify.Rename):
		return domain.FileRenamed, true
	case op.Has(fsnotify.Create):
		return domain.FileCreated, true
	case op.Has(fsnotify.Write):
		return domain.FileModified, true
	default:
		return 0, false
	}
}
