// Package client performs remote function calls against an RFC server: one
// HTTP POST per call, a hard per-call timeout, and translation of everything
// that can go wrong into exactly two failure classes.
//
//   - *rfc.RemoteError: the peer answered and rejected or failed the call
//     (bad secret, unknown function, or the target function raised)
//   - *rfc.TransportError: the peer could not be reached in time; nothing is
//     implied about whether it executed the call
//
// The distinction is what callers key retry decisions on: only transport
// failures are sensibly retried, and only by explicit opt-in (see Retry).
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/GaryOcean428/gary-zero-sub006/codec"
	"github.com/GaryOcean428/gary-zero-sub006/config"
	"github.com/GaryOcean428/gary-zero-sub006/rfc"
	"github.com/GaryOcean428/gary-zero-sub006/transport"
)

// Client issues RFC calls. Construct once and share; it is safe for
// concurrent use.
type Client struct {
	resolver Resolver
	secret   string
	timeout  time.Duration
	http     *http.Client
	codec    codec.Codec
	log      *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout sets the default per-call deadline applied when the caller's
// context has none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient substitutes the underlying HTTP client (tests, custom TLS).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithResolver routes calls through a custom endpoint resolver, e.g.
// discovery-backed resolution across several runtime processes.
func WithResolver(r Resolver) Option {
	return func(c *Client) { c.resolver = r }
}

// WithLogger attaches a structured logger. Secrets and argument payloads are
// never logged regardless.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New builds a Client for the given base endpoint and shared secret. An
// empty secret is a configuration error here, before any call is attempted;
// there is no "no auth" fallback.
func New(endpoint, secret string, opts ...Option) (*Client, error) {
	if secret == "" {
		return nil, &config.Error{Param: "rfc_secret", Reason: "empty secret; refusing unauthenticated remote calls"}
	}
	c := &Client{
		resolver: StaticResolver{Endpoint: endpoint},
		secret:   secret,
		timeout:  config.DefaultTimeout,
		codec:    codec.Default(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, ok := c.resolver.(StaticResolver); ok && endpoint == "" {
		return nil, &config.Error{Param: "rfc_endpoint", Reason: "empty endpoint"}
	}
	if c.http == nil {
		c.http = transport.NewHTTPClient(0) // Deadlines come from the per-call context
	}
	return c, nil
}

// FromConfig builds a Client from the runtime configuration, failing fast on
// a missing endpoint or secret.
func FromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	endpoint, err := cfg.RFCEndpoint()
	if err != nil {
		return nil, err
	}
	secret, err := cfg.RFCSecret()
	if err != nil {
		return nil, err
	}
	return New(endpoint, secret, append([]Option{WithTimeout(cfg.RFCTimeout())}, opts...)...)
}

// Call invokes (module, function) on the runtime process with the given
// arguments and returns its result.
//
// Exactly one POST is sent; no retries. On deadline expiry the returned
// TransportError has Timeout set; the remote side may still complete the
// call, in which case its result is discarded by the server. That is the
// price of at-most-once delivery.
func (c *Client) Call(ctx context.Context, module, function string, args []any, kwargs map[string]any) (any, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &rfc.CallRequest{
		Module:   module,
		Function: function,
		Args:     args,
		Kwargs:   kwargs,
		Secret:   c.secret,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := c.codec.Encode(req)
	if err != nil {
		// Unserializable arguments (binary blobs, live references) are a
		// caller bug, not a transport condition.
		return nil, fmt.Errorf("client: encode request for %s.%s: %w", module, function, err)
	}

	endpoint, err := c.resolver.Resolve(ctx, module, function)
	if err != nil {
		return nil, err
	}
	target, err := url.JoinPath(endpoint, rfc.DefaultPath)
	if err != nil {
		return nil, fmt.Errorf("client: bad endpoint %q: %w", endpoint, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.transportError("post", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.transportError("read response", err)
	}

	c.log.Debug("rfc call completed",
		zap.String("module", module),
		zap.String("function", function),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	var resp rfc.CallResponse
	decodeErr := c.codec.Decode(respBody, &resp)

	// Non-2xx statuses are application-level rejections. Prefer the in-band
	// kind when the body carries one (proxies and middleware sometimes
	// rewrite statuses but not bodies).
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		if decodeErr == nil && resp.Failed() {
			return nil, resp.Err()
		}
		return nil, &rfc.RemoteError{
			Kind:    rfc.ErrorKindApplication,
			Message: fmt.Sprintf("unexpected status %d from %s", httpResp.StatusCode, target),
		}
	}

	if decodeErr != nil {
		// A 200 with an unreadable body: the channel is broken and nothing
		// can be said about remote execution state.
		return nil, &rfc.TransportError{Op: "decode response", Err: decodeErr}
	}
	if resp.Failed() {
		return nil, resp.Err()
	}
	return resp.Result, nil
}

// transportError classifies a network failure, flagging deadline expiry.
func (c *Client) transportError(op string, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if !timeout && errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &rfc.TransportError{Op: op, Timeout: timeout, Err: err}
}
