package daemon

import (
	"net/http"
	"strings"
)

// authMiddleware validates bearer tokens on the local API. An empty token
// disables authentication entirely; the webhook endpoint is excluded either
// way because the engine authenticates with the URL signature instead.
func authMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
