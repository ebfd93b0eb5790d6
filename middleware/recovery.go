package middleware

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GaryOcean428/gary-zero-sub006/rfc"
)

// Recover converts a panicking operation into an in-band ApplicationError so
// one bad handler cannot take the runtime process down with it.
func Recover(log *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *rfc.CallRequest) (resp *rfc.CallResponse) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("rfc handler panicked",
						zap.String("module", req.Module),
						zap.String("function", req.Function),
						zap.Any("panic", r),
					)
					resp = rfc.NewError(rfc.ErrorKindApplication, fmt.Sprintf("panic: %v", r))
				}
			}()
			return next(ctx, req)
		}
	}
}
