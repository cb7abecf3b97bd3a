package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/metrics"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// DefaultPollInterval is how often the watcher drains filesystem events.
const DefaultPollInterval = 3 * time.Second

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// StorePath is the store file; its parent directory is watched.
	StorePath string

	PollInterval time.Duration

	// OpenSource opens the event source for the store directory.
	OpenSource ports.EventSourceFactory

	// OnUnregistered, if set, runs after the watcher unregisters itself
	// because the store directory went away.
	OnUnregistered func()
}

// Watcher turns bursts of filesystem events on the store file into at most
// one read-and-forward per poll. Unsent entries at or above the registered
// severity are rendered by the Reader and passed to the sink.
type Watcher struct {
	dir            string
	name           string
	poll           time.Duration
	openSource     ports.EventSourceFactory
	onUnregistered func()
	reader         *Reader
	sink           ports.Sink
	logger         ports.Logger
	metrics        *metrics.Metrics

	mu     sync.Mutex
	source ports.EventSource
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher returns an unregistered watcher.
func NewWatcher(cfg WatcherConfig, reader *Reader, sink ports.Sink, logger ports.Logger, m *metrics.Metrics) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Watcher{
		dir:            filepath.Dir(cfg.StorePath),
		name:           filepath.Base(cfg.StorePath),
		poll:           cfg.PollInterval,
		openSource:     cfg.OpenSource,
		onUnregistered: cfg.OnUnregistered,
		reader:         reader,
		sink:           sink,
		logger:         log.Named(logger, "watcher"),
		metrics:        m,
	}
}

// Register starts watching the store directory and forwarding unsent entries
// with Severity >= minSeverity. The directory must already exist.
func (w *Watcher) Register(ctx context.Context, minSeverity domain.Severity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.source != nil {
		return domain.ErrAlreadyRunning
	}
	if w.openSource == nil {
		return fmt.Errorf("%w: no event source configured", domain.ErrWatchTarget)
	}

	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWatchTarget, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrWatchTarget, w.dir)
	}

	src, err := w.openSource(w.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWatchTarget, err)
	}

	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	w.source = src
	w.cancel = cancel
	w.done = done

	go w.run(pollCtx, src, minSeverity, done)

	w.logger.Info("Watching store directory",
		ports.String("dir", w.dir),
		ports.String("file", w.name),
		ports.String("min_severity", minSeverity.String()),
		ports.Duration("poll_interval", w.poll),
	)
	return nil
}

// Unregister stops watching and waits for a running poll to finish. It is a
// no-op when the watcher is not registered.
func (w *Watcher) Unregister() {
	w.mu.Lock()
	src, cancel, done := w.source, w.cancel, w.done
	w.source, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()

	if src == nil {
		return
	}
	cancel()
	<-done
	if err := src.Close(); err != nil {
		w.logger.Warn("Failed to close event source", ports.Err(err))
	}
	w.logger.Info("Stopped watching store directory", ports.String("dir", w.dir))
}

// Registered reports whether the watcher currently holds an event source.
func (w *Watcher) Registered() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source != nil
}

func (w *Watcher) run(ctx context.Context, src ports.EventSource, minSeverity domain.Severity, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.pollOnce(ctx, src, minSeverity) {
				w.unregisterSelf(src)
				return
			}
		}
	}
}

// pollOnce drains pending events and forwards unsent entries at most once.
// It returns false when the source has become invalid.
func (w *Watcher) pollOnce(ctx context.Context, src ports.EventSource, minSeverity domain.Severity) bool {
	triggered := false
	for _, ev := range src.Drain() {
		if triggered || ev.Kind != domain.FileModified || !w.matches(ev.Name) {
			continue
		}
		triggered = true
		w.trigger(ctx, minSeverity)
	}
	return src.Valid()
}

func (w *Watcher) trigger(ctx context.Context, minSeverity domain.Severity) {
	text := w.reader.Read(ctx, minSeverity, false)
	if text == "" {
		return
	}
	w.sink.Send(text)
	w.metrics.Triggered(len(text))
	w.logger.Debug("Forwarded unsent entries", ports.Int("bytes", len(text)))
}

// matches reports whether name is the store file or one of its SQLite
// siblings such as the rollback journal.
func (w *Watcher) matches(name string) bool {
	base := filepath.Base(name)
	return base == w.name || strings.HasPrefix(base, w.name+"-")
}

// unregisterSelf releases src after the poll loop found it invalid. Nothing
// is logged above DEBUG; the OnUnregistered hook decides how loud to be.
func (w *Watcher) unregisterSelf(src ports.EventSource) {
	w.mu.Lock()
	if w.source != src {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.source, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()

	cancel()
	if err := src.Close(); err != nil {
		w.logger.Debug("Failed to close event source", ports.Err(err))
	}
	w.logger.Debug("Store directory no longer watchable", ports.String("dir", w.dir))
	if w.onUnregistered != nil {
		w.onUnregistered()
	}
}
