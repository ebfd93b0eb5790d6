// Package transport constructs the HTTP client the RFC path sends through.
//
// Connection pooling lives here: the development process issues many small
// POSTs to the same runtime peer, so idle connections are kept and reused
// instead of re-dialed per call. Pool sizing is deliberately modest; this is
// a low-fanout bridge between two processes, not a high-volume proxy.
package transport

import (
	"net"
	"net/http"
	"time"
)

const (
	maxIdleConns        = 16
	maxIdleConnsPerHost = 8
	idleConnTimeout     = 90 * time.Second
	dialTimeout         = 5 * time.Second
	keepAlivePeriod     = 30 * time.Second
)

// NewHTTPClient returns a client with a pooled transport and the given
// overall request timeout. A zero timeout disables the client-level deadline;
// per-call contexts still apply.
func NewHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: keepAlivePeriod,
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
			IdleConnTimeout:     idleConnTimeout,
		},
	}
}
