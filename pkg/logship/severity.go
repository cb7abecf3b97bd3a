package logship

import "github.com/bft-labs/logship/internal/domain"

// Severity orders entries. Higher is more severe; values are persisted.
type Severity = domain.Severity

const (
	SeverityFinest  = domain.SeverityFinest
	SeverityFiner   = domain.SeverityFiner
	SeverityFine    = domain.SeverityFine
	SeverityConfig  = domain.SeverityConfig
	SeverityInfo    = domain.SeverityInfo
	SeverityWarning = domain.SeverityWarning
	SeveritySevere  = domain.SeveritySevere
)

// ParseSeverity accepts a level name such as "warning" or a decimal value.
func ParseSeverity(v string) (Severity, error) {
	return domain.ParseSeverity(v)
}

// Errors returned by Logship. Check them with errors.Is.
var (
	ErrAlreadyRunning     = domain.ErrAlreadyRunning
	ErrNotRunning         = domain.ErrNotRunning
	ErrShutdownTimeout    = domain.ErrShutdownTimeout
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrStoreUnrecoverable = domain.ErrStoreUnrecoverable
	ErrWatchTarget        = domain.ErrWatchTarget
	ErrClosed             = domain.ErrClosed
)
