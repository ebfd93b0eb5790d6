// Package middleware wraps the RFC server's request pipeline. A middleware
// sees the decoded call envelope before the operation runs and the in-band
// response after; never the HTTP layer and never the raw secret-bearing
// bytes.
package middleware

import (
	"context"

	"github.com/GaryOcean428/gary-zero-sub006/rfc"
)

// HandlerFunc processes one call and always produces a response; failures
// travel in-band as error-kind responses, not as Go errors.
type HandlerFunc func(ctx context.Context, req *rfc.CallRequest) *rfc.CallResponse

// Middleware wraps a handler with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one, onion-style: Chain(A, B, C)(h) runs
// A.before → B.before → C.before → h → C.after → B.after → A.after.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
