package httpx

import (
	"context"
	"net/http"
	"strings"
)

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
}

// BearerMiddleware rejects requests without a bearer token and stores the
// token in the request context. Token validity is not checked here; for the
// configuration API the identity provider is the only party that can.
func BearerMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeBearerError(w, "missing bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), CtxKeyBearer, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaticBearerMiddleware only lets requests through whose bearer token
// equals want. An empty want rejects everything.
func StaticBearerMiddleware(want string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if want == "" || token == "" || !ConstantTimeEqual(token, want) {
				writeBearerError(w, "invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
