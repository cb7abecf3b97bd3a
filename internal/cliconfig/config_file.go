package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StorePath       string `toml:"store_path"`
	MaxStoreBytes   int    `toml:"max_store_bytes"`
	PollInterval    string `toml:"poll_interval"`
	Transport       string `toml:"transport"`
	SMTPHost        string `toml:"smtp_host"`
	SMTPPort        int    `toml:"smtp_port"`
	SMTPUsername    string `toml:"smtp_username"`
	SMTPPassword    string `toml:"smtp_password"`
	SMTPTLS         *bool  `toml:"smtp_tls"`
	From            string `toml:"from"`
	To              string `toml:"to"`
	Subject         string `toml:"subject"`
	WebhookURL      string `toml:"webhook_url"`
	WebhookToken    string `toml:"webhook_token"`
	WebhookCompress *bool  `toml:"webhook_compress"`
	MinSeverity     string `toml:"min_severity"`
	Interval        string `toml:"interval"`
	Timeout         string `toml:"timeout"`
	MetricsAddr     string `toml:"metrics_addr"`
	LogLevel        string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.logship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".logship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("store", fc.StorePath, &cfg.StorePath)
	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("smtp-host", fc.SMTPHost, &cfg.SMTPHost)
	s.setString("smtp-username", fc.SMTPUsername, &cfg.SMTPUsername)
	s.setString("smtp-password", fc.SMTPPassword, &cfg.SMTPPassword)
	s.setString("from", fc.From, &cfg.From)
	s.setString("to", fc.To, &cfg.To)
	s.setString("subject", fc.Subject, &cfg.Subject)
	s.setString("webhook-url", fc.WebhookURL, &cfg.WebhookURL)
	s.setString("webhook-token", fc.WebhookToken, &cfg.WebhookToken)
	s.setString("min-severity", fc.MinSeverity, &cfg.MinSeverity)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}

	s.setInt("smtp-port", fc.SMTPPort, &cfg.SMTPPort)
	s.setInt("max-store-bytes", fc.MaxStoreBytes, &cfg.MaxStoreBytes)

	s.setBool("smtp-tls", fc.SMTPTLS, &cfg.SMTPTLS)
	s.setBool("webhook-compress", fc.WebhookCompress, &cfg.WebhookCompress)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
