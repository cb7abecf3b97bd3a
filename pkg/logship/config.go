package logship

import (
	"fmt"
	"time"

	"github.com/bft-labs/logship/internal/adapters/store"
	"github.com/bft-labs/logship/internal/app"
	"github.com/bft-labs/logship/internal/domain"
)

// DefaultStorePath is where the store lives when Config.StorePath is empty.
const DefaultStorePath = "./log/log.db"

// DeliveryConfig holds the delivery settings. See DefaultDeliveryConfig.
type DeliveryConfig = app.DeliveryConfig

// TransportKind selects the built-in transport.
type TransportKind = app.TransportKind

const (
	TransportSMTP    = app.TransportSMTP
	TransportWebhook = app.TransportWebhook
)

// Delivery defaults.
const (
	DefaultInterval    = app.DefaultInterval
	MinInterval        = app.MinInterval
	DefaultSendTimeout = app.DefaultSendTimeout
	DefaultMinSeverity = app.DefaultMinSeverity
)

// DefaultDeliveryConfig returns SMTP delivery with STARTTLS on port 587 of
// WARNING and above every 60 seconds.
func DefaultDeliveryConfig() DeliveryConfig {
	return app.DefaultDeliveryConfig()
}

// Config configures a Logship instance.
type Config struct {
	// StorePath is the encrypted store file. Its directory is created on
	// Start and watched for changes.
	StorePath string

	// MaxStoreBytes is the size at which the store deletes itself and starts
	// over. Default 1 MiB.
	MaxStoreBytes int64

	// PollInterval is how often filesystem events are examined. Default 3s.
	PollInterval time.Duration

	// WebhookCompress zstd-encodes webhook bodies.
	WebhookCompress bool

	Delivery DeliveryConfig
}

// DefaultConfig returns a Config with every default filled in. Delivery
// still needs its relay, addresses and subject.
func DefaultConfig() Config {
	return Config{
		StorePath:     DefaultStorePath,
		MaxStoreBytes: store.DefaultMaxSizeBytes,
		PollInterval:  app.DefaultPollInterval,
		Delivery:      DefaultDeliveryConfig(),
	}
}

// SetDefaults fills zero-valued store and polling fields. Delivery fields
// are left alone; their defaults are applied when they are used.
func (c *Config) SetDefaults() {
	if c.StorePath == "" {
		c.StorePath = DefaultStorePath
	}
	if c.MaxStoreBytes <= 0 {
		c.MaxStoreBytes = store.DefaultMaxSizeBytes
	}
	if c.PollInterval <= 0 {
		c.PollInterval = app.DefaultPollInterval
	}
}

// Validate checks the delivery settings.
func (c Config) Validate() error {
	if c.MaxStoreBytes < 0 {
		return fmt.Errorf("%w: max store bytes must not be negative", domain.ErrInvalidConfig)
	}
	return c.Delivery.Validate()
}
