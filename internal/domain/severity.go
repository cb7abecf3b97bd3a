package domain

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Severity orders log entries. The numeric values are persisted in the store
// and compared with >=, so they must never be renumbered.
type Severity int

const (
	SeverityFinest  Severity = 300
	SeverityFiner   Severity = 400
	SeverityFine    Severity = 500
	SeverityConfig  Severity = 700
	SeverityInfo    Severity = 800
	SeverityWarning Severity = 900
	SeveritySevere  Severity = 1000
)

var severityNames = map[Severity]string{
	SeverityFinest:  "FINEST",
	SeverityFiner:   "FINER",
	SeverityFine:    "FINE",
	SeverityConfig:  "CONFIG",
	SeverityInfo:    "INFO",
	SeverityWarning: "WARNING",
	SeveritySevere:  "SEVERE",
}

// String returns the display name, or the decimal value for custom levels.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return strconv.Itoa(int(s))
}

// ParseSeverity accepts a level name (case-insensitive) or a decimal value.
func ParseSeverity(v string) (Severity, error) {
	v = strings.TrimSpace(v)
	for sev, name := range severityNames {
		if strings.EqualFold(v, name) {
			return sev, nil
		}
	}
	switch strings.ToUpper(v) {
	case "WARN":
		return SeverityWarning, nil
	case "ERROR":
		return SeveritySevere, nil
	case "DEBUG":
		return SeverityFine, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("unknown severity %q", v)
	}
	return Severity(n), nil
}

// SeverityFromSlog maps a slog level onto the nearest severity at or below it.
func SeverityFromSlog(level slog.Level) Severity {
	switch {
	case level >= slog.LevelError:
		return SeveritySevere
	case level >= slog.LevelWarn:
		return SeverityWarning
	case level >= slog.LevelInfo:
		return SeverityInfo
	case level >= slog.LevelDebug:
		return SeverityFine
	default:
		return SeverityFinest
	}
}

// Set implements pflag.Value so severities can be bound to flags directly.
func (s *Severity) Set(v string) error {
	parsed, err := ParseSeverity(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Type implements pflag.Value.
func (s *Severity) Type() string { return "severity" }
