// Package logship keeps application logs in an encrypted local store and
// ships the important ones by email or webhook.
//
// Example usage:
//
//	cfg := logship.DefaultConfig()
//	cfg.Delivery.Host = "smtp.example.com"
//	cfg.Delivery.From = "alerts@example.com"
//	cfg.Delivery.To = "ops@example.com"
//	cfg.Delivery.Subject = "[app] log report"
//	ls, err := logship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ls.Close()
//	if err := ls.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	ls.WriteLog(logship.SeverityWarning, "disk almost full")
//
// The full API lives in github.com/bft-labs/logship/pkg/logship.
package logship

import (
	"github.com/bft-labs/logship/pkg/logship"
)

// Config configures a Logship instance.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = logship.Config

// Logship is an embedded log shipping pipeline.
type Logship = logship.Logship

// Option configures optional behavior of Logship.
type Option = logship.Option

// Severity orders log entries.
type Severity = logship.Severity

const (
	SeverityFinest  = logship.SeverityFinest
	SeverityFiner   = logship.SeverityFiner
	SeverityFine    = logship.SeverityFine
	SeverityConfig  = logship.SeverityConfig
	SeverityInfo    = logship.SeverityInfo
	SeverityWarning = logship.SeverityWarning
	SeveritySevere  = logship.SeveritySevere
)

// DefaultStorePath is where the store lives when Config.StorePath is empty.
const DefaultStorePath = logship.DefaultStorePath

// New wires a pipeline. See logship.New in pkg/logship.
func New(cfg Config, opts ...Option) (*Logship, error) {
	return logship.New(cfg, opts...)
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return logship.DefaultConfig()
}
