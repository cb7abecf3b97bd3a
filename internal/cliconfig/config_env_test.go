package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies valid env vars",
			envVars: map[string]string{
				"LOGSHIP_STORE_PATH":    "/env/log.db",
				"LOGSHIP_SMTP_HOST":     "smtp.env",
				"LOGSHIP_POLL_INTERVAL": "10s",
				"LOGSHIP_SMTP_PORT":     "2525",
				"LOGSHIP_SMTP_TLS":      "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				StorePath:    "/env/log.db",
				SMTPHost:     "smtp.env",
				PollInterval: 10 * time.Second,
				SMTPPort:     2525,
				SMTPTLS:      true,
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"LOGSHIP_STORE_PATH": "/env/log.db",
				"LOGSHIP_SMTP_HOST":  "smtp.env",
			},
			changed: map[string]bool{"store": true},
			initial: Config{
				StorePath: "/flag/log.db",
			},
			expected: Config{
				StorePath: "/flag/log.db",
				SMTPHost:  "smtp.env",
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"LOGSHIP_INTERVAL": "not-a-duration",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"LOGSHIP_SMTP_PORT": "not-a-number",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name: "handles bool '1' as true",
			envVars: map[string]string{
				"LOGSHIP_WEBHOOK_COMPRESS": "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				WebhookCompress: true,
			},
			wantErr: false,
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"LOGSHIP_SMTP_TLS": "false",
			},
			changed: map[string]bool{},
			initial: Config{SMTPTLS: true},
			expected: Config{
				SMTPTLS: false,
			},
			wantErr: false,
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"LOGSHIP_STORE_PATH":       "/store/log.db",
				"LOGSHIP_MAX_STORE_BYTES":  "4096",
				"LOGSHIP_POLL_INTERVAL":    "1s",
				"LOGSHIP_TRANSPORT":        "webhook",
				"LOGSHIP_SMTP_HOST":        "smtp.example.com",
				"LOGSHIP_SMTP_PORT":        "465",
				"LOGSHIP_SMTP_USERNAME":    "alerts",
				"LOGSHIP_SMTP_PASSWORD":    "secret",
				"LOGSHIP_SMTP_TLS":         "1",
				"LOGSHIP_FROM":             "alerts@example.com",
				"LOGSHIP_TO":               "ops@example.com",
				"LOGSHIP_SUBJECT":          "report",
				"LOGSHIP_WEBHOOK_URL":      "http://example.com/hook",
				"LOGSHIP_WEBHOOK_TOKEN":    "tok",
				"LOGSHIP_WEBHOOK_COMPRESS": "true",
				"LOGSHIP_MIN_SEVERITY":     "info",
				"LOGSHIP_INTERVAL":         "2m",
				"LOGSHIP_TIMEOUT":          "30s",
				"LOGSHIP_METRICS_ADDR":     ":9102",
				"LOGSHIP_LOG_LEVEL":        "debug",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				StorePath:       "/store/log.db",
				MaxStoreBytes:   4096,
				PollInterval:    time.Second,
				Transport:       "webhook",
				SMTPHost:        "smtp.example.com",
				SMTPPort:        465,
				SMTPUsername:    "alerts",
				SMTPPassword:    "secret",
				SMTPTLS:         true,
				From:            "alerts@example.com",
				To:              "ops@example.com",
				Subject:         "report",
				WebhookURL:      "http://example.com/hook",
				WebhookToken:    "tok",
				WebhookCompress: true,
				MinSeverity:     "info",
				Interval:        2 * time.Minute,
				Timeout:         30 * time.Second,
				MetricsAddr:     ":9102",
				LogLevel:        "debug",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
