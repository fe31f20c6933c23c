package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth returns middleware that, when token is non-empty, requires
// Authorization: Bearer <token>. Missing or incorrect token returns 401 Unauthorized.
// When token is empty, the next handler is called without checking.
// Requests for any of the public paths skip the check.
func BearerAuth(token string, public ...string) func(http.Handler) http.Handler {
	return BearerAuthFunc(func() string { return token }, public...)
}

// BearerAuthFunc is BearerAuth with the token read per request, so it can
// change while serving.
func BearerAuthFunc(current func() string, public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := current()
			if token == "" || open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			got := strings.TrimSpace(auth[len(prefix):])
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
