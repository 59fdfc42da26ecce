package testutil

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
)

// Call is one recorded transport invocation, with the session mode that was
// in effect when it was made.
type Call struct {
	Method  string
	URL     string
	Query   url.Values
	Headers map[string]string
	Body    []byte
	Mode    adt.SessionMode
}

// MockTransport is a scripted transport.Transport for tests. Responder
// decides the outcome of each call; when nil, every call succeeds with an
// empty 200. All calls and session-mode changes are recorded.
type MockTransport struct {
	// Responder receives the zero-based call index and the request.
	Responder func(call int, req *transport.Request) (*transport.Response, error)

	mu        sync.Mutex
	mode      adt.SessionMode
	modeLog   []adt.SessionMode
	calls     []Call
	sessionID string
}

var _ transport.Transport = (*MockTransport)(nil)

func NewMockTransport() *MockTransport {
	return &MockTransport{
		mode:      adt.SessionStateless,
		sessionID: uuid.NewString(),
	}
}

func (m *MockTransport) MakeADTRequest(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.NetworkError{Err: err}
	}

	m.mu.Lock()
	index := len(m.calls)
	headers := map[string]string{}
	for k, v := range req.Headers {
		headers[k] = v
	}
	query := url.Values{}
	for k, v := range req.Query {
		query[k] = append([]string(nil), v...)
	}
	m.calls = append(m.calls, Call{
		Method:  req.Method,
		URL:     req.URL,
		Query:   query,
		Headers: headers,
		Body:    append([]byte(nil), req.Body...),
		Mode:    m.mode,
	})
	responder := m.Responder
	m.mu.Unlock()

	if responder == nil {
		return &transport.Response{Status: http.StatusOK}, nil
	}
	return responder(index, req)
}

func (m *MockTransport) SetSessionType(mode adt.SessionMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	m.modeLog = append(m.modeLog, mode)
}

func (m *MockTransport) SessionID() string {
	return m.sessionID
}

// Calls returns a copy of all recorded calls.
func (m *MockTransport) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the recorded calls whose URL matches exactly.
func (m *MockTransport) CallsTo(url string) []Call {
	var matching []Call
	for _, c := range m.Calls() {
		if c.URL == url {
			matching = append(matching, c)
		}
	}
	return matching
}

// Mode returns the current session mode.
func (m *MockTransport) Mode() adt.SessionMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// ModeChanges returns every SetSessionType call in order.
func (m *MockTransport) ModeChanges() []adt.SessionMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adt.SessionMode(nil), m.modeLog...)
}
