package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// AuthMiddleware returns a middleware that validates the x-api-key header
// (or Authorization: Bearer <key>) against the accepted key set. An empty
// key set disables authentication entirely.
func AuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	if len(apiKeys) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callerKey(r)
			if key == "" {
				log.Warn().Str("path", r.URL.Path).Msg("missing_api_key")
				w.Header().Set("WWW-Authenticate", "ApiKey")
				writeError(w, http.StatusUnauthorized, "Missing API key")
				return
			}
			if !keyAccepted(apiKeys, key) {
				log.Warn().Str("key", maskKey(key)).Msg("invalid_api_key")
				w.Header().Set("WWW-Authenticate", "ApiKey")
				writeError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// keyAccepted compares the presented key against every accepted key in
// constant time, without early exit.
func keyAccepted(apiKeys []string, key string) bool {
	ok := false
	for _, k := range apiKeys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok
}

// callerKey extracts the caller credential from a request: the x-api-key
// header, falling back to a bearer token.
func callerKey(r *http.Request) string {
	if key := r.Header.Get("x-api-key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// maskKey truncates a credential for logging. Only the first 8 characters
// ever reach the logs.
func maskKey(key string) string {
	if len(key) > 8 {
		key = key[:8]
	}
	return key + "..."
}

// RateLimitMiddleware returns a middleware that enforces the limiter,
// keying callers by API key when present and by remote address otherwise.
// A nil limiter disables rate limiting.
func RateLimitMiddleware(l *RateLimiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := callerKey(r)
			if caller == "" {
				caller = r.RemoteAddr
			}
			if !l.Allow(caller) {
				log.Warn().Str("caller", maskKey(caller)).Msg("rate_limited")
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware returns a middleware that sets CORS headers.
// allowedOrigins can be ["*"] for any.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
			break
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				for _, o := range allowedOrigins {
					if o == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						break
					}
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, x-api-key")
			w.Header().Set("Access-Control-Max-Age", "300")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
