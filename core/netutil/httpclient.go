package netutil

import (
	"net"
	"net/http"
	"time"
)

// ClientOptions tunes BuildHTTPClient. Zero values select defaults.
type ClientOptions struct {
	Timeout time.Duration
	// MaxRetries of 0 selects the default; a negative value disables retries.
	MaxRetries int
	Backoff    time.Duration
	// IdempotentOnly restricts retries to GET and HEAD requests.
	IdempotentOnly bool
	// Base overrides the underlying transport (tests).
	Base http.RoundTripper
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	switch {
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	case o.MaxRetries == 0:
		o.MaxRetries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	if o.Base == nil {
		o.Base = pooledTransport()
	}
	return o
}

func pooledTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// BuildHTTPClient returns a client with pooled connections whose transport
// retries timeouts and dial failures with linear backoff.
func BuildHTTPClient(opts ClientOptions) *http.Client {
	opts = opts.withDefaults()
	return &http.Client{Timeout: opts.Timeout, Transport: &retryTransport{opts: opts}}
}

type retryTransport struct {
	opts ClientOptions
}

func (t *retryTransport) attemptsFor(req *http.Request) int {
	if t.opts.IdempotentOnly && req.Method != http.MethodGet && req.Method != http.MethodHead {
		return 1
	}
	return t.opts.MaxRetries + 1
}

// rewind returns a copy of req with a fresh body, or false when the body
// cannot be replayed.
func rewind(req *http.Request) (*http.Request, bool) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	clone.Body = body
	return clone, true
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempts := t.attemptsFor(req)
	next := req
	for n := 1; ; n++ {
		resp, err := t.opts.Base.RoundTrip(next)
		if err == nil || n == attempts || !ShouldRetry(err) {
			return resp, err
		}

		wait := time.NewTimer(t.opts.Backoff * time.Duration(n))
		select {
		case <-req.Context().Done():
			wait.Stop()
			return nil, req.Context().Err()
		case <-wait.C:
		}

		var ok bool
		if next, ok = rewind(req); !ok {
			return nil, err
		}
	}
}
