package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"
)

// GetTestContext returns a context bounded by the shorter of the go test
// deadline and timeout; a zero timeout means only the test deadline applies.
// Setting TEST_CONTEXT_TIMEOUT to a number of minutes replaces both bounds,
// so a debugger session is not cut off mid-step.
func GetTestContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	if override, ok := debuggerTimeout(); ok {
		return context.WithTimeout(context.Background(), override)
	}

	var limit time.Time
	if deadline, ok := t.Deadline(); ok {
		limit = deadline
	}
	if timeout != 0 {
		if byTimeout := time.Now().Add(timeout); limit.IsZero() || byTimeout.Before(limit) {
			limit = byTimeout
		}
	}

	if limit.IsZero() {
		return context.WithCancel(context.Background())
	}
	return context.WithDeadline(context.Background(), limit)
}

func debuggerTimeout() (time.Duration, bool) {
	raw, found := os.LookupEnv("TEST_CONTEXT_TIMEOUT")
	if !found {
		return 0, false
	}
	minutes, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		panic(fmt.Sprintf("TEST_CONTEXT_TIMEOUT %q is not a number of minutes: %v", raw, err))
	}
	return time.Duration(minutes) * time.Minute, true
}
