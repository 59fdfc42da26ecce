package transport

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-logr/logr"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
)

// Observer receives transport-level events. All methods may be called from
// the request path; implementations must be cheap. A nil Observer is valid.
type Observer interface {
	RequestCompleted(method string, status int)
	AcceptRenegotiated(method, url string)
}

// Negotiator wraps a Transport and recovers from 406 Not Acceptable
// responses: it extracts the media types the server advertises, retries the
// request once with a corrected Accept header, and remembers the corrected
// header per (method, URL) so later calls skip the failing round trip.
type Negotiator struct {
	inner Transport
	cache AcceptCache
	log   logr.Logger
	obs   Observer
}

type NegotiatorOption func(*Negotiator)

func WithAcceptCache(cache AcceptCache) NegotiatorOption {
	return func(n *Negotiator) { n.cache = cache }
}

func WithObserver(obs Observer) NegotiatorOption {
	return func(n *Negotiator) { n.obs = obs }
}

// NewNegotiator wraps inner. Unless WithAcceptCache is given, a fresh cache
// owned by this Negotiator is created, so independent instances never share
// negotiation state.
func NewNegotiator(inner Transport, log logr.Logger, opts ...NegotiatorOption) (*Negotiator, error) {
	n := &Negotiator{inner: inner, log: log}
	for _, opt := range opts {
		opt(n)
	}
	if n.cache == nil {
		cache, err := NewAcceptCache()
		if err != nil {
			return nil, err
		}
		n.cache = cache
	}
	return n, nil
}

var _ Transport = (*Negotiator)(nil)

func (n *Negotiator) SetSessionType(mode adt.SessionMode) { n.inner.SetSessionType(mode) }
func (n *Negotiator) SessionID() string                   { return n.inner.SessionID() }

func (n *Negotiator) MakeADTRequest(ctx context.Context, req *Request) (*Response, error) {
	// A cached entry exists only after the server rejected this request
	// shape with a 406, so the negotiated type also replaces an explicit
	// Accept header the caller set.
	if accept, ok := n.cache.Get(req.Method, req.URL); ok {
		req.SetHeader("Accept", accept)
	}

	resp, err := n.inner.MakeADTRequest(ctx, req)
	n.observe(req.Method, resp, err)
	if err == nil {
		return resp, nil
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusNotAcceptable {
		return nil, err
	}

	accept := supportedMediaType(httpErr)
	if accept == "" || accept == req.Header("Accept") {
		return nil, err
	}

	n.log.V(1).Info("retrying with negotiated Accept header",
		"method", req.Method, "url", req.URL, "accept", accept)
	req.SetHeader("Accept", accept)
	resp, retryErr := n.inner.MakeADTRequest(ctx, req)
	n.observe(req.Method, resp, retryErr)
	if retryErr != nil {
		// The retry did not help; surface the original 406.
		return nil, err
	}

	n.cache.Set(req.Method, req.URL, accept)
	if n.obs != nil {
		n.obs.AcceptRenegotiated(req.Method, req.URL)
	}
	return resp, nil
}

func (n *Negotiator) observe(method string, resp *Response, err error) {
	if n.obs == nil {
		return
	}
	status := 0
	if resp != nil {
		status = resp.Status
	} else {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Status
		}
	}
	n.obs.RequestCompleted(method, status)
}

var mediaTypeRe = regexp.MustCompile(`[a-zA-Z0-9.+-]+/[a-zA-Z0-9.+-]+(?:;[^",\s<>]*)?`)

// supportedMediaType picks the first media type the server advertises in a
// 406 response, preferring the Accept response header over the body.
func supportedMediaType(httpErr *HTTPError) string {
	if httpErr.Headers != nil {
		for _, candidate := range strings.Split(httpErr.Headers.Get("Accept"), ",") {
			candidate = strings.TrimSpace(candidate)
			if candidate != "" {
				return candidate
			}
		}
	}
	// Some systems list the supported types in the error body only.
	return mediaTypeRe.FindString(string(httpErr.Body))
}
