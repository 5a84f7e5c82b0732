package httpx

import "context"

type ctxKey string

const (
	CtxKeyBearer ctxKey = "bearer"
)

// BearerFromContext returns the bearer token stored by BearerMiddleware.
func BearerFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyBearer).(string)
	return v, ok && v != ""
}
