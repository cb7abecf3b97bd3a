package cliconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/logship/pkg/logship"
)

const masked = "*****"

// Config holds CLI configuration for logship.
type Config struct {
	StorePath     string
	MaxStoreBytes int
	PollInterval  time.Duration

	Transport string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPTLS      bool

	From    string
	To      string
	Subject string

	WebhookURL      string
	WebhookToken    string
	WebhookCompress bool

	MinSeverity string
	Interval    time.Duration
	Timeout     time.Duration

	MetricsAddr string
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		StorePath:     logship.DefaultStorePath,
		MaxStoreBytes: 1 << 20, // 1MB
		PollInterval:  3 * time.Second,
		Transport:     string(logship.TransportSMTP),
		SMTPTLS:       true,
		MinSeverity:   logship.DefaultMinSeverity.String(),
		Interval:      logship.DefaultInterval,
		Timeout:       logship.DefaultSendTimeout,
		LogLevel:      "info",
	}
}

// Validate checks the local settings. Delivery settings are checked by
// Delivery().Validate because read and write commands do not need them.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.StorePath) == "" {
		errs = append(errs, errors.New("store is required"))
	}
	if c.MaxStoreBytes < 0 {
		errs = append(errs, errors.New("max store bytes must not be negative"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if _, err := logship.ParseSeverity(c.MinSeverity); err != nil {
		errs = append(errs, fmt.Errorf("min severity: %w", err))
	}
	return errors.Join(errs...)
}

// Library converts the CLI configuration into a logship.Config.
func (c *Config) Library() (logship.Config, error) {
	sev, err := logship.ParseSeverity(c.MinSeverity)
	if err != nil {
		return logship.Config{}, fmt.Errorf("min severity: %w", err)
	}
	return logship.Config{
		StorePath:       c.StorePath,
		MaxStoreBytes:   int64(c.MaxStoreBytes),
		PollInterval:    c.PollInterval,
		WebhookCompress: c.WebhookCompress,
		Delivery: logship.DeliveryConfig{
			Transport:    logship.TransportKind(strings.ToLower(c.Transport)),
			Host:         c.SMTPHost,
			Port:         c.SMTPPort,
			Username:     c.SMTPUsername,
			Password:     c.SMTPPassword,
			UseTLS:       c.SMTPTLS,
			From:         c.From,
			To:           c.To,
			Subject:      c.Subject,
			WebhookURL:   c.WebhookURL,
			WebhookToken: c.WebhookToken,
			MinSeverity:  sev,
			Interval:     c.Interval,
			Timeout:      c.Timeout,
		},
	}, nil
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	if c.SMTPPassword != "" {
		c.SMTPPassword = masked
	}
	if c.WebhookToken != "" {
		c.WebhookToken = masked
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
