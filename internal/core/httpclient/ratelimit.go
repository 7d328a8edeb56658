package httpclient

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// LimitedTransport shares one token bucket per upstream host across every
// caller of the client, so concurrent sessions cannot flood the upstream.
type LimitedTransport struct {
	next  http.RoundTripper
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewLimitedTransport(next http.RoundTripper, limit rate.Limit, burst int) *LimitedTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimitedTransport{
		next:     next,
		limit:    limit,
		burst:    burst,
		limiters: map[string]*rate.Limiter{},
	}
}

func (t *LimitedTransport) limiterFor(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	lim, ok := t.limiters[host]
	if !ok {
		lim = rate.NewLimiter(t.limit, t.burst)
		t.limiters[host] = lim
	}
	return lim
}

func (t *LimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiterFor(req.URL.Host).Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	return t.next.RoundTrip(req)
}
