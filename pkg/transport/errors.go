package transport

import (
	"fmt"
	"net/http"
)

// HTTPError is returned when the server answered with a non-2xx status.
// The raw body is retained for caller inspection; ADT error bodies carry the
// actual message text.
type HTTPError struct {
	Status     int
	StatusText string
	Headers    http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	text := e.StatusText
	if text == "" {
		text = http.StatusText(e.Status)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("server returned %d %s: %s", e.Status, text, truncate(e.Body, 512))
	}
	return fmt.Sprintf("server returned %d %s", e.Status, text)
}

// StatusCode returns the HTTP status. It makes HTTPError match the
// status-carrying error shape the adt package branches on.
func (e *HTTPError) StatusCode() int { return e.Status }

// NetworkError is returned when no response was obtained at all: connection
// failures, timeouts, context cancellation.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
