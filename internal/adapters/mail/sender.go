// Package mail delivers batches over SMTP.
package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/bft-labs/logship/internal/domain"
	"github.com/bft-labs/logship/internal/ports"
	"github.com/bft-labs/logship/pkg/log"
)

// BatchHeader carries the batch ID on every message.
const BatchHeader = "X-Logship-Batch"

const (
	submissionPort = 587
	plainPort      = 25
	sslPort        = 465
)

// Config is the SMTP relay configuration.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// UseTLS requires STARTTLS (or implicit TLS on 465) and PLAIN auth.
	// Without it the session is plain text and unauthenticated.
	UseTLS bool

	Timeout time.Duration
}

// Sender implements ports.Transport over SMTP.
type Sender struct {
	cfg    Config
	logger ports.Logger
}

var _ ports.Transport = (*Sender)(nil)

// New returns an SMTP sender. Nothing is dialed until Send.
func New(cfg Config, logger ports.Logger) *Sender {
	return &Sender{cfg: cfg, logger: log.Named(logger, "smtp")}
}

// Send dials the relay, delivers msg and disconnects.
func (s *Sender) Send(ctx context.Context, msg domain.Message) error {
	m, err := BuildMessage(msg)
	if err != nil {
		return err
	}
	client, port, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s:%d: %w", s.cfg.Host, port, err)
	}
	s.logger.Debug("Message relayed",
		ports.String("batch", msg.ID),
		ports.Int("recipients", len(msg.To)),
	)
	return nil
}

// client builds a go-mail client and reports the port it will dial.
func (s *Sender) client() (*gomail.Client, int, error) {
	port := s.cfg.Port
	if port == 0 {
		port = submissionPort
		if !s.cfg.UseTLS {
			port = plainPort
		}
	}

	opts := []gomail.Option{gomail.WithPort(port)}
	if s.cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(s.cfg.Timeout))
	}
	if s.cfg.UseTLS {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
		if port == sslPort {
			opts = append(opts, gomail.WithSSL())
		} else {
			opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
		}
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("create smtp client: %w", err)
	}
	return client, port, nil
}

// BuildMessage renders msg as a plain-text mail.
func BuildMessage(msg domain.Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", msg.From, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	m.Subject(msg.Subject)
	if !msg.SentAt.IsZero() {
		m.SetDateWithValue(msg.SentAt)
	}
	if msg.ID != "" {
		m.SetGenHeader(gomail.Header(BatchHeader), msg.ID)
	}
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}
