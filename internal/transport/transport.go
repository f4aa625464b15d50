// Package transport is the HTTP client adapter of spec §4.1: it submits
// requests with arbitrary method/headers/body, follows redirects under
// a bounded, RFC-correct policy, retries a 401 once with stored
// credentials, and turns TLS failures into a fatal error unless the
// caller opted to ignore them. It does not parse response bodies.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-dav/davsync/dav"
	"github.com/rs/zerolog"
)

// MaxRedirects bounds automatic redirect following (spec §4.1, N=5).
const MaxRedirects = 5

// Credentials is the (username, password, ignoreTlsErrors) tuple spec
// §6 calls the "credential source".
type Credentials struct {
	Username        string
	Password        string
	IgnoreTLSErrors bool
}

// Doer is the pluggable HTTP client this module is built against; any
// *http.Client satisfies it, and tests substitute a fake.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is the parsed-enough-to-use shape jobs work with: status,
// headers, and the fully-read body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string // after redirects, for Location-less PUT responses
}

// Client is the adapter. It owns no retry state across requests besides
// the single "have we already retried for auth" guard per call.
type Client struct {
	HTTP   Doer
	Creds  Credentials
	Logger zerolog.Logger
}

func New(doer Doer, creds Credentials, logger zerolog.Logger) *Client {
	return &Client{HTTP: doer, Creds: creds, Logger: logger}
}

// Request performs method against url with headers and body, following
// redirects and retrying auth as described in spec §4.1.
func (c *Client) Request(ctx context.Context, method, url string, headers http.Header, body []byte, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.do(ctx, method, url, headers, body, 0, false)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, url string, headers http.Header, body []byte, redirectCount int, retriedAuth bool) (*Response, error) {
	c.Logger.Debug().Str("method", method).Str("url", url).Int("redirects", redirectCount).Msg("dav request")

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, dav.NewError(dav.ProblemWithRequest, 0, "building request", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.Creds.Username != "" {
		req.SetBasicAuth(c.Creds.Username, c.Creds.Password)
	}

	httpResp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, dav.NewError(dav.Timeout, 0, "request timed out", err)
		}
		if isTLSError(err) && !c.Creds.IgnoreTLSErrors {
			return nil, dav.NewError(dav.TLSError, 0, "tls verification failed", err)
		}
		return nil, dav.NewError(dav.ProblemWithRequest, 0, "request failed", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, dav.NewError(dav.ProblemWithRequest, httpResp.StatusCode, "reading response body", err)
	}

	c.Logger.Debug().Str("method", method).Str("url", url).Int("status", httpResp.StatusCode).Msg("dav response")

	if httpResp.StatusCode == http.StatusUnauthorized && !retriedAuth && c.Creds.Username != "" {
		return c.do(ctx, method, url, headers, body, redirectCount, true)
	}
	if httpResp.StatusCode == http.StatusUnauthorized {
		return nil, dav.NewError(dav.AuthRequired, httpResp.StatusCode, "authentication required", nil)
	}

	if isRedirect(httpResp.StatusCode) {
		if redirectCount >= MaxRedirects {
			return nil, dav.NewError(dav.ProblemWithRequest, httpResp.StatusCode, "too many redirects", nil)
		}
		loc := httpResp.Header.Get("Location")
		if loc == "" {
			return nil, dav.NewError(dav.MalformedResponse, httpResp.StatusCode, "redirect without Location", nil)
		}
		next, err := req.URL.Parse(loc)
		if err != nil {
			return nil, dav.NewError(dav.MalformedResponse, httpResp.StatusCode, "invalid redirect Location", err)
		}
		nextMethod, nextBody := method, body
		if httpResp.StatusCode == http.StatusSeeOther {
			// 303 downgrades to GET per RFC 7231 §6.4.4.
			nextMethod, nextBody = http.MethodGet, nil
		}
		return c.do(ctx, nextMethod, next.String(), headers, nextBody, redirectCount+1, retriedAuth)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		FinalURL:   req.URL.String(),
	}, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func isTLSError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuthErr x509.UnknownAuthorityError
	return errors.As(err, &unknownAuthErr)
}
