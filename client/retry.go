package client

import (
	"context"
	"errors"
	"time"

	"github.com/GaryOcean428/gary-zero-sub006/rfc"
)

// Retry wraps a call with explicit opt-in retry semantics: only transport
// failures are retried (the remote side provably did not answer those);
// RemoteError means the peer decided, and repeating would duplicate work or
// re-trip the same rejection.
//
// The dispatcher and client never retry on their own; at-most-once per Call
// is the delivery contract, and wrapping here is how a caller trades that for
// at-least-once on idempotent operations.
//
// Backoff doubles from baseDelay on each attempt. maxRetries counts retries
// after the first failure, so maxRetries=2 means up to three calls total.
func Retry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	result, err := fn(ctx)
	for i := 0; i < maxRetries; i++ {
		if err == nil {
			return result, nil
		}
		var terr *rfc.TransportError
		if !errors.As(err, &terr) {
			return result, err
		}

		select {
		case <-time.After(baseDelay * time.Duration(1<<i)):
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), err)
		}
		result, err = fn(ctx)
	}
	return result, err
}
