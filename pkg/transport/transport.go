// Package transport defines the boundary to the HTTP/XML transport that
// talks to the ABAP system: the request/response types, the tagged error
// types, timeout classes, and the Accept-header negotiation wrapper.
//
// The transport itself (CSRF token handling, cookies, TLS) is a collaborator
// provided by the caller; everything in this repository programs against the
// Transport interface.
package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
)

// TimeoutClass selects which configured timeout applies to a request.
type TimeoutClass string

const (
	// TimeoutDefault is used for ordinary CRUD and lock calls.
	TimeoutDefault TimeoutClass = "default"
	// TimeoutCSRF is used for token-fetch calls.
	TimeoutCSRF TimeoutClass = "csrf"
	// TimeoutLong is used for long-polling reads.
	TimeoutLong TimeoutClass = "long"
)

// Request describes one ADT call. URL is the resource path relative to the
// system base URL; Query is appended as the query string.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values
	Body    []byte
	Timeout TimeoutClass
}

// Header returns the named request header, or "".
func (r *Request) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[http.CanonicalHeaderKey(name)]
}

// SetHeader sets a request header, allocating the map on first use.
func (r *Request) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[http.CanonicalHeaderKey(name)] = value
}

// Response is the outcome of a successful (2xx) ADT call.
type Response struct {
	Status     int
	StatusText string
	Headers    http.Header
	Body       []byte
}

// Transport is the collaborator that performs ADT calls against one ABAP
// system. Implementations return a *HTTPError for non-2xx responses and a
// *NetworkError when no response was obtained.
//
// SetSessionType switches between stateful and stateless HTTP sessions.
// The session-mode flag is mutated in place: one Transport instance must not
// be shared by concurrently running operation chains.
type Transport interface {
	MakeADTRequest(ctx context.Context, req *Request) (*Response, error)
	SetSessionType(mode adt.SessionMode)
	SessionID() string
}
