package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LOGSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("store", os.Getenv("LOGSHIP_STORE_PATH"), &cfg.StorePath)
	s.setString("transport", os.Getenv("LOGSHIP_TRANSPORT"), &cfg.Transport)
	s.setString("smtp-host", os.Getenv("LOGSHIP_SMTP_HOST"), &cfg.SMTPHost)
	s.setString("smtp-username", os.Getenv("LOGSHIP_SMTP_USERNAME"), &cfg.SMTPUsername)
	s.setString("smtp-password", os.Getenv("LOGSHIP_SMTP_PASSWORD"), &cfg.SMTPPassword)
	s.setString("from", os.Getenv("LOGSHIP_FROM"), &cfg.From)
	s.setString("to", os.Getenv("LOGSHIP_TO"), &cfg.To)
	s.setString("subject", os.Getenv("LOGSHIP_SUBJECT"), &cfg.Subject)
	s.setString("webhook-url", os.Getenv("LOGSHIP_WEBHOOK_URL"), &cfg.WebhookURL)
	s.setString("webhook-token", os.Getenv("LOGSHIP_WEBHOOK_TOKEN"), &cfg.WebhookToken)
	s.setString("min-severity", os.Getenv("LOGSHIP_MIN_SEVERITY"), &cfg.MinSeverity)
	s.setString("metrics-addr", os.Getenv("LOGSHIP_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("LOGSHIP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("poll", os.Getenv("LOGSHIP_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("interval", os.Getenv("LOGSHIP_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("LOGSHIP_TIMEOUT"), &cfg.Timeout); err != nil {
		return err
	}

	if err := s.setIntFromString("smtp-port", os.Getenv("LOGSHIP_SMTP_PORT"), &cfg.SMTPPort); err != nil {
		return err
	}
	if err := s.setIntFromString("max-store-bytes", os.Getenv("LOGSHIP_MAX_STORE_BYTES"), &cfg.MaxStoreBytes); err != nil {
		return err
	}

	s.setBoolFromString("smtp-tls", os.Getenv("LOGSHIP_SMTP_TLS"), &cfg.SMTPTLS)
	s.setBoolFromString("webhook-compress", os.Getenv("LOGSHIP_WEBHOOK_COMPRESS"), &cfg.WebhookCompress)

	return nil
}
