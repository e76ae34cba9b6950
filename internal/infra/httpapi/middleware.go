// Package httpapi implements the distribution trigger API using chi.
package httpapi

import (
	"net/http"
	"strings"
)

// AuthMiddleware returns middleware that validates the shared-secret Bearer
// token. Unauthorized calls are rejected before any lookup occurs.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != secret {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
