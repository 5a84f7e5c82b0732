package httpx

import (
	"net/http"
	"strings"
)

// CORSConfig describes the single origin allowed to call the API from a browser.
type CORSConfig struct {
	Origin  string
	Methods []string
	Headers []string
}

// CORS answers preflight requests and decorates responses for the allowed
// origin. Requests from other origins are passed through without CORS headers,
// which makes browsers block them.
func CORS(cfg CORSConfig) Middleware {
	methods := strings.Join(cfg.Methods, ", ")
	headers := strings.Join(cfg.Headers, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o := r.Header.Get("Origin"); o != "" && o == cfg.Origin {
				w.Header().Set("Access-Control-Allow-Origin", o)
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
