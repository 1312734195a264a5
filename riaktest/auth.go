package riaktest

import (
	"crypto/subtle"
	"net/http"
)

// exemptPaths are routes that bypass authentication.
var exemptPaths = map[string]struct{}{
	"/ping": {},
}

// BasicAuthMiddleware returns a middleware that checks HTTP basic
// credentials. An empty username disables authentication (pass-through).
func BasicAuthMiddleware(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if username == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			u, p, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="riak"`)
				writeText(w, http.StatusUnauthorized, "missing credentials")
				return
			}
			userOK := subtle.ConstantTimeCompare([]byte(u), []byte(username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(p), []byte(password)) == 1
			if !userOK || !passOK {
				writeText(w, http.StatusUnauthorized, "invalid credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
