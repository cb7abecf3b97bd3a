package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/logship/internal/domain"
)

// TransportKind selects how batches leave the process.
type TransportKind string

const (
	TransportSMTP    TransportKind = "smtp"
	TransportWebhook TransportKind = "webhook"
)

// Delivery defaults.
const (
	DefaultInterval    = 60 * time.Second
	MinInterval        = 15 * time.Second
	DefaultSMTPPort    = 587
	PlainSMTPPort      = 25
	DefaultSendTimeout = 30 * time.Second
	DefaultMinSeverity = domain.SeverityWarning
)

// DeliveryConfig holds the delivery settings. Start from
// DefaultDeliveryConfig; the zero value has TLS disabled.
type DeliveryConfig struct {
	Transport TransportKind

	// SMTP relay.
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool

	From string
	// To is a comma-separated recipient list.
	To      string
	Subject string

	WebhookURL   string
	WebhookToken string

	MinSeverity domain.Severity
	Interval    time.Duration
	Timeout     time.Duration
}

// DefaultDeliveryConfig returns the defaults: SMTP with STARTTLS on port 587,
// WARNING and above, every 60 seconds.
func DefaultDeliveryConfig() DeliveryConfig {
	return DeliveryConfig{
		Transport:   TransportSMTP,
		Port:        DefaultSMTPPort,
		UseTLS:      true,
		MinSeverity: DefaultMinSeverity,
		Interval:    DefaultInterval,
		Timeout:     DefaultSendTimeout,
	}
}

// Validate reports every missing or invalid field at once. The result wraps
// domain.ErrInvalidConfig.
func (c DeliveryConfig) Validate() error {
	var errs []error
	required := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	required("subject", c.Subject)

	switch c.Kind() {
	case TransportSMTP:
		required("host", c.Host)
		required("from", c.From)
		if len(c.Recipients()) == 0 {
			errs = append(errs, errors.New("to is required"))
		}
		if c.UseTLS {
			required("username", c.Username)
			required("password", c.Password)
		}
		if c.Port < 0 || c.Port > 65535 {
			errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
		}
	case TransportWebhook:
		required("webhook_url", c.WebhookURL)
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}

	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
}

// Kind returns the transport kind, defaulting to SMTP.
func (c DeliveryConfig) Kind() TransportKind {
	if c.Transport == "" {
		return TransportSMTP
	}
	return TransportKind(strings.ToLower(string(c.Transport)))
}

// Recipients splits To on commas and drops empty items.
func (c DeliveryConfig) Recipients() []string {
	var out []string
	for _, r := range strings.Split(c.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// EffectivePort returns the SMTP port to dial. A plain-text relay left on
// the submission port is moved to 25.
func (c DeliveryConfig) EffectivePort() int {
	port := c.Port
	if port == 0 {
		port = DefaultSMTPPort
	}
	if !c.UseTLS && port == DefaultSMTPPort {
		return PlainSMTPPort
	}
	return port
}

// EffectiveInterval returns the flush interval after defaults and the floor,
// and whether the configured value was raised to the floor.
func (c DeliveryConfig) EffectiveInterval() (time.Duration, bool) {
	return clampInterval(c.Interval, MinInterval)
}

func clampInterval(d, floor time.Duration) (time.Duration, bool) {
	if d == 0 {
		return DefaultInterval, false
	}
	if d < floor {
		return floor, true
	}
	return d, false
}

// EffectiveMinSeverity returns MinSeverity or WARNING when unset.
func (c DeliveryConfig) EffectiveMinSeverity() domain.Severity {
	if c.MinSeverity == 0 {
		return DefaultMinSeverity
	}
	return c.MinSeverity
}

// EffectiveTimeout returns Timeout or the default when unset.
func (c DeliveryConfig) EffectiveTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultSendTimeout
	}
	return c.Timeout
}

// Redacted returns a copy safe to log.
func (c DeliveryConfig) Redacted() DeliveryConfig {
	if c.Password != "" {
		c.Password = "***"
	}
	if c.WebhookToken != "" {
		c.WebhookToken = "***"
	}
	return c
}
