package transport

import "time"

// Timeouts holds the per-call-class request timeouts. A chain never cancels
// cooperatively; a timed-out step fails like any other and triggers the
// cleanup-unlock path.
type Timeouts struct {
	Default time.Duration
	CSRF    time.Duration
	Long    time.Duration
}

// DefaultTimeouts returns the stock timeout configuration.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Default: 45 * time.Second,
		CSRF:    15 * time.Second,
		Long:    4 * time.Minute,
	}
}

// For resolves a timeout class to a duration. Unknown classes get the
// default timeout.
func (t Timeouts) For(class TimeoutClass) time.Duration {
	switch class {
	case TimeoutCSRF:
		return t.CSRF
	case TimeoutLong:
		return t.Long
	default:
		return t.Default
	}
}
