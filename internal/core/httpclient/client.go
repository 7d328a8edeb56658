// Package httpclient configures the HTTP client used to call upstream services.
package httpclient

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	Timeout   time.Duration
	UserAgent string
	// RPS caps requests per second per upstream host; zero disables the limiter.
	RPS   float64
	Burst int
}

// NewOutbound creates a new outbound http client
func NewOutbound(opts Options) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}

	var rt http.RoundTripper = transport
	if opts.RPS > 0 {
		rt = NewLimitedTransport(rt, rate.Limit(opts.RPS), opts.Burst)
	}
	if opts.UserAgent != "" {
		rt = &userAgentTransport{next: rt, ua: opts.UserAgent}
	}
	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
	}
}

type userAgentTransport struct {
	next http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(r)
}
