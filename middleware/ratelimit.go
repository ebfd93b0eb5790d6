package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/GaryOcean428/gary-zero-sub006/rfc"
)

// RateLimit rejects calls beyond a token-bucket budget of r calls per second
// with bursts up to burst. Rejection happens before resolution and
// invocation, in-band, so a flooding development process gets a clean error
// instead of a stalled runtime.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *rfc.CallRequest) *rfc.CallResponse {
			if !limiter.Allow() {
				return rfc.NewError(rfc.ErrorKindApplication, "rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
