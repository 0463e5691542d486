package infra

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UpstreamTransport applies the upstream policy (User-Agent, rate limit,
// host override) to libraries that take a plain *http.Client instead of
// a resty client.
type UpstreamTransport struct {
	Base      http.RoundTripper
	UserAgent string
	Limiter   *RateLimiter
	// Origin, when set, replaces the scheme and host of every request.
	Origin *url.URL
}

// RoundTrip waits on the limiter, then forwards a rewritten copy of req.
func (t *UpstreamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	out := req.Clone(req.Context())
	if t.UserAgent != "" {
		out.Header.Set("User-Agent", t.UserAgent)
	}
	if t.Origin != nil {
		out.URL.Scheme = t.Origin.Scheme
		out.URL.Host = t.Origin.Host
		out.Host = t.Origin.Host
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}

// NewHTTPClient returns a net/http client carrying the same User-Agent,
// limiter and timeout as NewRestClient. A non-empty origin redirects every
// request to that scheme and host.
func NewHTTPClient(opts ClientOptions, origin string) (*http.Client, error) {
	t := &UpstreamTransport{
		Base:      http.DefaultTransport,
		UserAgent: opts.UserAgent,
		Limiter:   opts.Limiter,
	}
	if origin = strings.TrimSpace(origin); origin != "" {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("infra: invalid origin %q", origin)
		}
		t.Origin = u
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Transport: t, Timeout: timeout}, nil
}
