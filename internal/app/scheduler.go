package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/metrics"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// SendEventEmitter is notified after every delivery attempt.
type SendEventEmitter interface {
	OnSendSuccess(marked int64, bytes int, duration time.Duration)
	OnSendError(err error, bytes int)
}

// SchedulerDeps are the collaborators of a Scheduler. Store and Transport
// are required.
type SchedulerDeps struct {
	Store     ports.EntryStore
	Transport ports.Transport

	// Watch configures the change watcher the scheduler registers on Start.
	Watch WatcherConfig

	Logger       ports.Logger
	Metrics      *metrics.Metrics
	SendEmitter  SendEventEmitter
	StateEmitter StateEmitter

	// Now defaults to time.Now.
	Now func() time.Time

	// ShutdownTimeout defaults to ShutdownTimeout.
	ShutdownTimeout time.Duration
}

var _ ports.Sink = (*Scheduler)(nil)

// Scheduler buffers forwarded entry text and delivers it on a fixed
// interval. Delivered entries are marked sent only after the transport
// accepted the batch; a failed batch is dropped and the entries stay unsent
// in the store.
type Scheduler struct {
	cfg             DeliveryConfig
	store           ports.EntryStore
	transport       ports.Transport
	buffer          *Buffer
	watcher         *Watcher
	lifecycle       *Lifecycle
	logger          ports.Logger
	metrics         *metrics.Metrics
	emitter         SendEventEmitter
	now             func() time.Time
	shutdownTimeout time.Duration

	// floor is the smallest flush interval Start accepts.
	floor time.Duration

	// flushing serializes deliveries so MarkSent follows its own send.
	flushing chan struct{}
}

// NewScheduler wires a scheduler and its watcher. The configuration is
// validated by Start, not here.
func NewScheduler(cfg DeliveryConfig, deps SchedulerDeps) *Scheduler {
	logger := log.Named(deps.Logger, "scheduler")
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	shutdown := deps.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = ShutdownTimeout
	}

	s := &Scheduler{
		cfg:             cfg,
		store:           deps.Store,
		transport:       deps.Transport,
		buffer:          NewBuffer(now),
		lifecycle:       NewLifecycle(deps.Logger, deps.StateEmitter),
		logger:          logger,
		metrics:         deps.Metrics,
		emitter:         deps.SendEmitter,
		now:             now,
		shutdownTimeout: shutdown,
		floor:           MinInterval,
		flushing:        make(chan struct{}, 1),
	}

	watchCfg := deps.Watch
	userHook := watchCfg.OnUnregistered
	watchCfg.OnUnregistered = func() {
		s.logger.Warn("Store directory disappeared, change watcher stopped; restart delivery to resume watching")
		if userHook != nil {
			userHook()
		}
	}
	s.watcher = NewWatcher(watchCfg, NewReader(deps.Store, deps.Logger), s, deps.Logger, deps.Metrics)
	return s
}

// Send appends formatted entry text to the delivery buffer. It never blocks
// on delivery.
func (s *Scheduler) Send(text string) {
	if text == "" {
		return
	}
	n := s.buffer.Append(text)
	s.metrics.Buffered(n)
}

// Start validates the configuration, registers the watcher and schedules the
// flush ticker. A failed start leaves the scheduler Crashed, from which
// Start may be called again.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.lifecycle.CanStart() {
		s.logger.Warn("Start called while already running")
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	fail := func(err error) error {
		s.logger.Error("Failed to start delivery", ports.Err(err))
		_ = s.lifecycle.TransitionTo(StateCrashed, err.Error())
		return err
	}

	if s.store == nil || s.transport == nil {
		return fail(fmt.Errorf("%w: store and transport are required", domain.ErrInvalidConfig))
	}
	if err := s.cfg.Validate(); err != nil {
		return fail(err)
	}

	interval, clamped := clampInterval(s.cfg.Interval, s.floor)
	if clamped {
		s.logger.Warn("Flush interval below minimum, using minimum",
			ports.Duration("configured", s.cfg.Interval),
			ports.Duration("interval", interval),
		)
	}

	if err := s.watcher.Register(ctx, s.cfg.EffectiveMinSeverity()); err != nil {
		return fail(err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.lifecycle.SetCancel(cancel)
	s.lifecycle.Go(func() { s.run(runCtx, interval) })

	s.logger.Info("Delivery started",
		ports.String("transport", string(s.cfg.Kind())),
		ports.String("min_severity", s.cfg.EffectiveMinSeverity().String()),
		ports.Duration("interval", interval),
	)
	return s.lifecycle.TransitionTo(StateRunning, "started")
}

// Stop unregisters the watcher, cancels future flushes and waits for one in
// flight. Text still in the buffer is not delivered.
func (s *Scheduler) Stop() error {
	if !s.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		return err
	}

	s.watcher.Unregister()
	s.lifecycle.Cancel()

	if err := s.lifecycle.WaitWithTimeout(s.shutdownTimeout); err != nil {
		_ = s.lifecycle.TransitionTo(StateCrashed, "shutdown timeout")
		return err
	}
	return s.lifecycle.TransitionTo(StateStopped, "stopped")
}

// Flush delivers the buffered text now. It returns the transport or
// mark-sent error, if any.
func (s *Scheduler) Flush(ctx context.Context) error {
	select {
	case s.flushing <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.flushing }()
	return s.flush(ctx)
}

// State returns the lifecycle state.
func (s *Scheduler) State() State { return s.lifecycle.State() }

// Buffered returns the number of bytes waiting for the next flush.
func (s *Scheduler) Buffered() int { return s.buffer.Len() }

// Watching reports whether the change watcher is registered.
func (s *Scheduler) Watching() bool { return s.watcher.Registered() }

// Watcher returns the scheduler's change watcher.
func (s *Scheduler) Watcher() *Watcher { return s.watcher }

func (s *Scheduler) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A flush that outlives the tick is allowed to finish; Stop
			// waits for it.
			_ = s.Flush(context.WithoutCancel(ctx))
		}
	}
}

func (s *Scheduler) flush(ctx context.Context) error {
	appends, age := s.buffer.Pending(), s.buffer.SinceLastDrain()
	body := s.buffer.Drain()
	s.metrics.Buffered(0)
	if body == "" {
		return nil
	}

	msg := domain.Message{
		ID:      uuid.NewString(),
		From:    s.cfg.From,
		To:      s.cfg.Recipients(),
		Subject: s.cfg.Subject,
		Body:    body,
		SentAt:  s.now(),
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.EffectiveTimeout())
	defer cancel()

	start := time.Now()
	err := s.transport.Send(sendCtx, msg)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("Send failed, dropping batch",
			ports.Err(err),
			ports.String("batch", msg.ID),
			ports.Int("bytes", msg.Size()),
		)
		s.metrics.Flushed(metrics.ResultFailure, duration.Seconds(), 0)
		if s.emitter != nil {
			s.emitter.OnSendError(err, msg.Size())
		}
		return fmt.Errorf("send batch %s: %w", msg.ID, err)
	}

	marked, err := s.store.MarkSent(ctx, s.cfg.EffectiveMinSeverity())
	if err != nil {
		s.logger.Error("Batch sent but entries not marked, they will be sent again",
			ports.Err(err),
			ports.String("batch", msg.ID),
		)
	}

	s.metrics.Flushed(metrics.ResultSuccess, duration.Seconds(), marked)
	if s.emitter != nil {
		s.emitter.OnSendSuccess(marked, msg.Size(), duration)
	}
	s.logger.Info("Sent batch",
		ports.String("batch", msg.ID),
		ports.Int("bytes", msg.Size()),
		ports.Int("appends", appends),
		ports.Duration("age", age),
		ports.Int64("marked", marked),
		ports.Duration("duration", duration),
	)

	if err != nil {
		return fmt.Errorf("mark batch %s sent: %w", msg.ID, err)
	}
	return nil
}
