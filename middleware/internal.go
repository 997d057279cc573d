package middleware

import (
	"crypto/subtle"
	"net/http"
)

const InternalKeyHeader = "X-Internal-Key"

// RequireInternalKey guards routes called by the scoring service. An empty key disables
// the routes entirely.
func RequireInternalKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				writeError(w, http.StatusForbidden, "internal api disabled")
				return
			}
			given := r.Header.Get(InternalKeyHeader)
			if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid internal key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
