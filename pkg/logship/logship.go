package logship

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	httpAdapter "github.com/bft-labs/logship/internal/adapters/http"
	"github.com/bft-labs/logship/internal/adapters/mail"
	"github.com/bft-labs/logship/internal/adapters/notify"
	"github.com/bft-labs/logship/internal/adapters/store"
	"github.com/bft-labs/logship/internal/app"
	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/metrics"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// Logship is an embedded log shipping pipeline: a Writer feeding an
// encrypted store, a watcher forwarding unsent entries, and a scheduler
// delivering them on an interval. Use New, then Start; call Close on every
// exit path.
type Logship struct {
	config    Config
	store     *store.Store
	reader    *app.Reader
	writer    *app.Writer
	scheduler *app.Scheduler
	logger    ports.Logger

	mu       sync.Mutex
	closed   atomic.Bool
	closeErr error
}

// New wires the pipeline. Nothing touches the filesystem or network until
// the first write, read or Start. Delivery settings are validated by Start.
func New(cfg Config, opts ...Option) (*Logship, error) {
	cfg.SetDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.hostname == "" {
		o.hostname = hostname()
	}
	if o.openSource == nil {
		o.openSource = notify.Factory(o.logger)
	}

	m := metrics.New(o.registerer)

	st, err := store.New(store.Config{
		Path:         cfg.StorePath,
		MaxSizeBytes: cfg.MaxStoreBytes,
		Logger:       o.logger,
		Metrics:      m,
	})
	if err != nil {
		return nil, err
	}

	transport := o.transport
	if transport == nil {
		transport = newTransport(cfg, o)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	scheduler := app.NewScheduler(cfg.Delivery, app.SchedulerDeps{
		Store:     st,
		Transport: transport,
		Watch: app.WatcherConfig{
			StorePath:    cfg.StorePath,
			PollInterval: cfg.PollInterval,
			OpenSource:   o.openSource,
		},
		Logger:       o.logger,
		Metrics:      m,
		SendEmitter:  emitter,
		StateEmitter: emitter,
		Now:          o.now,
	})

	return &Logship{
		config:    cfg,
		store:     st,
		reader:    app.NewReader(st, o.logger),
		writer:    app.NewWriter(st, o.logger, m, o.now),
		scheduler: scheduler,
		logger:    o.logger,
	}, nil
}

// newTransport builds the transport named by the delivery config. An
// unknown kind yields nil; Start rejects that config anyway.
func newTransport(cfg Config, o options) ports.Transport {
	d := cfg.Delivery
	switch d.Kind() {
	case app.TransportSMTP:
		return mail.New(mail.Config{
			Host:     d.Host,
			Port:     d.EffectivePort(),
			Username: d.Username,
			Password: d.Password,
			UseTLS:   d.UseTLS,
			Timeout:  d.EffectiveTimeout(),
		}, o.logger)
	case app.TransportWebhook:
		client := o.httpClient
		if client == nil {
			client = &http.Client{Timeout: d.EffectiveTimeout()}
		}
		return httpAdapter.NewWebhookSender(httpAdapter.WebhookConfig{
			URL:      d.WebhookURL,
			Token:    d.WebhookToken,
			Hostname: o.hostname,
			Compress: cfg.WebhookCompress,
		}, client, o.logger)
	default:
		return nil
	}
}

// Start opens the store and starts watching and delivery. The store
// directory is created if needed.
func (l *Logship) Start(ctx context.Context) error {
	if l.closed.Load() {
		return domain.ErrClosed
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Open(ctx); err != nil {
		l.logger.Error("Failed to open store", ports.Err(err))
		return err
	}
	return l.scheduler.Start(ctx)
}

// Stop stops watching and delivery. Buffered text that has not been sent is
// discarded; the entries stay unsent in the store.
func (l *Logship) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scheduler.Stop()
}

// Close stops the service if it is running and releases the watcher and the
// store. It is safe to call more than once and from signal handlers'
// shutdown paths; later calls return the first result. Close is final: the
// writer and slog handler become no-ops and the store is never reopened.
func (l *Logship) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed.Swap(true) {
		return l.closeErr
	}

	var errs []error
	if err := l.scheduler.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		errs = append(errs, err)
	}
	l.writer.Close()
	l.scheduler.Watcher().Unregister()
	if err := l.store.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	l.closeErr = errors.Join(errs...)
	l.logger.Info("Logship closed")
	return l.closeErr
}

// Status returns the delivery lifecycle state.
func (l *Logship) Status() State {
	return convertState(l.scheduler.State())
}

// Buffered returns the bytes waiting for the next delivery.
func (l *Logship) Buffered() int {
	return l.scheduler.Buffered()
}

// Writer returns the entry writer. Its writes attribute entries to the
// caller of its methods.
func (l *Logship) Writer() *app.Writer {
	return l.writer
}

// WriteLog records message at severity, attributed to the caller. It is a
// no-op after Close.
func (l *Logship) WriteLog(severity Severity, message string) {
	pc := callerPC()
	l.writer.WriteEntry(context.Background(), severity, app.OriginFromPC(pc), message)
}

// Read returns the formatted entries with Severity >= minSeverity and the
// given sent flag. It returns "" after Close.
func (l *Logship) Read(ctx context.Context, minSeverity Severity, sent bool) string {
	if l.closed.Load() {
		return ""
	}
	return l.reader.Read(ctx, minSeverity, sent)
}

// Blocks yields the formatted entries one at a time.
func (l *Logship) Blocks(ctx context.Context, minSeverity Severity, sent bool) iter.Seq[string] {
	if l.closed.Load() {
		return func(func(string) bool) {}
	}
	return l.reader.Blocks(ctx, minSeverity, sent)
}

// MarkSent flags unsent entries at or above minSeverity as sent.
func (l *Logship) MarkSent(ctx context.Context, minSeverity Severity) (int64, error) {
	if l.closed.Load() {
		return 0, domain.ErrClosed
	}
	return l.store.MarkSent(ctx, minSeverity)
}

// DeliverUnsent sends every unsent entry at or above the delivery threshold
// as one batch, outside the interval schedule. Entries are marked sent only
// if the batch is accepted.
func (l *Logship) DeliverUnsent(ctx context.Context) error {
	if l.closed.Load() {
		return domain.ErrClosed
	}
	if err := l.config.Delivery.Validate(); err != nil {
		return err
	}
	text := l.reader.Read(ctx, l.config.Delivery.EffectiveMinSeverity(), false)
	l.scheduler.Send(text)
	return l.scheduler.Flush(ctx)
}

// Flush delivers whatever the watcher has buffered so far.
func (l *Logship) Flush(ctx context.Context) error {
	if l.closed.Load() {
		return domain.ErrClosed
	}
	return l.scheduler.Flush(ctx)
}

// Store returns the underlying store for maintenance tasks.
func (l *Logship) Store() *store.Store {
	return l.store
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

// callerPC returns the program counter of the caller of the function that
// called callerPC.
func callerPC() uintptr {
	pc, _, _, _ := runtime.Caller(2)
	return pc
}
