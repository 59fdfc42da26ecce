// Package httptransport is a minimal net/http implementation of the
// transport boundary: basic auth, a cookie jar, one-shot CSRF token fetch,
// and the stateful/stateless session header. It is deliberately small; the
// library proper only depends on the transport interface.
package httptransport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/adt"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/resiliency"
	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
)

const (
	sessionTypeHeader = "X-Sap-Adt-Sessiontype"
	csrfTokenHeader   = "X-Csrf-Token"
	discoveryURI      = "/sap/bc/adt/discovery"
)

// Options configure a Transport.
type Options struct {
	BaseURL  string
	Username string
	Password string
	// Client is the sap-client number, e.g. "100". Optional.
	Client string
	// Language is the sap-language, e.g. "EN". Optional.
	Language string
	Timeouts transport.Timeouts
}

// Transport performs ADT calls against one ABAP system. Not safe for use by
// concurrent operation chains: the session mode is mutated in place.
type Transport struct {
	opts      Options
	base      *url.URL
	client    *http.Client
	log       logr.Logger
	mode      adt.SessionMode
	csrfToken string
	sessionID string
}

var _ transport.Transport = (*Transport)(nil)

func New(opts Options, log logr.Logger) (*Transport, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.Timeouts == (transport.Timeouts{}) {
		opts.Timeouts = transport.DefaultTimeouts()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Transport{
		opts:      opts,
		base:      base,
		client:    &http.Client{Jar: jar},
		log:       log,
		mode:      adt.SessionStateless,
		sessionID: uuid.NewString(),
	}, nil
}

func (t *Transport) SetSessionType(mode adt.SessionMode) {
	t.mode = mode
}

func (t *Transport) SessionID() string {
	return t.sessionID
}

func (t *Transport) MakeADTRequest(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if mutating(req.Method) && t.csrfToken == "" {
		if err := t.fetchCSRFToken(ctx); err != nil {
			return nil, err
		}
	}
	return t.do(ctx, req)
}

func (t *Transport) do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	target := *t.base
	target.Path = strings.TrimSuffix(target.Path, "/") + req.URL

	query := url.Values{}
	for k, v := range req.Query {
		query[k] = v
	}
	if t.opts.Client != "" {
		query.Set("sap-client", t.opts.Client)
	}
	if t.opts.Language != "" {
		query.Set("sap-language", t.opts.Language)
	}
	target.RawQuery = query.Encode()

	timeoutCtx, cancel := context.WithTimeout(ctx, t.opts.Timeouts.For(req.Timeout))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(timeoutCtx, req.Method, target.String(), bytes.NewReader(req.Body))
	if err != nil {
		return nil, &transport.NetworkError{Err: err}
	}
	httpReq.SetBasicAuth(t.opts.Username, t.opts.Password)
	httpReq.Header.Set(sessionTypeHeader, string(t.mode))
	if t.csrfToken != "" && mutating(req.Method) {
		httpReq.Header.Set(csrfTokenHeader, t.csrfToken)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &transport.NetworkError{Err: err}
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &transport.NetworkError{Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &transport.HTTPError{
			Status:     httpResp.StatusCode,
			StatusText: httpResp.Status,
			Headers:    httpResp.Header,
			Body:       body,
		}
	}

	return &transport.Response{
		Status:     httpResp.StatusCode,
		StatusText: httpResp.Status,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}

// fetchCSRFToken primes the token and session cookies via the discovery
// resource. Transient network failures are retried; anything the server
// actually answered is not.
func (t *Transport) fetchCSRFToken(ctx context.Context) error {
	token, err := resiliency.RetryGet(ctx, csrfBackoff(), func() (string, error) {
		return t.requestCSRFToken(ctx)
	})
	if err != nil {
		return err
	}
	t.csrfToken = token
	return nil
}

func csrfBackoff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(250*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithMaxElapsedTime(10*time.Second),
	)
}

func (t *Transport) requestCSRFToken(ctx context.Context) (string, error) {
	target := *t.base
	target.Path = strings.TrimSuffix(target.Path, "/") + discoveryURI

	timeoutCtx, cancel := context.WithTimeout(ctx, t.opts.Timeouts.For(transport.TimeoutCSRF))
	defer cancel()

	httpReq, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", resiliency.Permanent(&transport.NetworkError{Err: err})
	}
	httpReq.SetBasicAuth(t.opts.Username, t.opts.Password)
	httpReq.Header.Set(csrfTokenHeader, "fetch")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return "", &transport.NetworkError{Err: err}
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, httpResp.Body)

	token := httpResp.Header.Get(csrfTokenHeader)
	if token == "" {
		return "", resiliency.Permanent(errors.New("server did not return a CSRF token"))
	}
	return token, nil
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
