package logship

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// HTTPClient is what the webhook transport needs. *http.Client satisfies it.
type HTTPClient = ports.HTTPClient

// Logger is the structured logger used by every component.
type Logger = log.Logger

// Transport delivers one batch. Send is synchronous and must not retry.
type Transport = ports.Transport

// Message is one outbound batch.
type Message = domain.Message

// EventSource reports filesystem changes in the store directory.
type EventSource = ports.EventSource

// FileEvent is one change reported by an EventSource.
type FileEvent = domain.FileEvent

// Kinds of FileEvent. Only FileModified on the store file triggers a read.
const (
	FileCreated  = domain.FileCreated
	FileModified = domain.FileModified
	FileRemoved  = domain.FileRemoved
	FileRenamed  = domain.FileRenamed
	FileOverflow = domain.FileOverflow
)

// Option configures optional behavior of Logship.
type Option func(*options)

type options struct {
	logger       ports.Logger
	transport    ports.Transport
	httpClient   ports.HTTPClient
	eventHandler EventHandler
	registerer   prometheus.Registerer
	now          func() time.Time
	openSource   ports.EventSourceFactory
	hostname     string
}

// WithLogger sets the logger. Without it nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransport replaces the transport selected by DeliveryConfig.Transport.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithHTTPClient sets the client used by the webhook transport.
// If not provided, a client with the delivery timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithEventHandler sets a handler for lifecycle and delivery events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithRegisterer registers pipeline metrics on reg. Without it metrics are
// collected but not registered anywhere.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithClock sets the time source for entry stamps and batch dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithEventSource replaces the fsnotify event source, mainly for tests.
func WithEventSource(open func(dir string) (EventSource, error)) Option {
	return func(o *options) {
		o.openSource = open
	}
}

// WithHostname overrides the hostname reported by the webhook transport.
func WithHostname(name string) Option {
	return func(o *options) {
		o.hostname = name
	}
}
