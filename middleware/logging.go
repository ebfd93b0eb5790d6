package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GaryOcean428/gary-zero-sub006/rfc"
)

// Logging records one structured line per call: target, duration, and the
// error kind on failure. Argument values and the secret never reach the log.
func Logging(log *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *rfc.CallRequest) *rfc.CallResponse {
			start := time.Now()
			resp := next(ctx, req)

			fields := []zap.Field{
				zap.String("module", req.Module),
				zap.String("function", req.Function),
				zap.Duration("duration", time.Since(start)),
			}
			if resp.Failed() {
				fields = append(fields,
					zap.String("error_kind", string(resp.ErrorKind)),
					zap.String("error_message", resp.ErrorMessage),
				)
				log.Warn("rfc call failed", fields...)
				return resp
			}
			log.Info("rfc call served", fields...)
			return resp
		}
	}
}
