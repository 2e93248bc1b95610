package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type keySet [][]byte

func newKeySet(keys []string) keySet {
	var ks keySet
	for _, k := range keys {
		if k != "" {
			ks = append(ks, []byte(k))
		}
	}
	return ks
}

// contains compares token against every key in constant time.
func (ks keySet) contains(token []byte) bool {
	ok := 0
	for _, k := range ks {
		ok |= subtle.ConstantTimeCompare(k, token)
	}
	return ok == 1
}

// readOnly reports whether r only reads records: any GET, or a POST to a
// collection's query route.
func readOnly(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return true
	case http.MethodPost:
		return strings.HasSuffix(r.URL.Path, "/query")
	default:
		return false
	}
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// Write keys may call every route, read-only keys only the routes accepted by
// readOnly. With no keys configured authentication is disabled.
func BearerAuthMiddleware(writeKeys, readKeys []string) func(http.Handler) http.Handler {
	write, read := newKeySet(writeKeys), newKeySet(readKeys)

	return func(next http.Handler) http.Handler {
		if len(write) == 0 && len(read) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			token := []byte(auth[len(bearerPrefix):])
			switch {
			case write.contains(token):
			case read.contains(token):
				if !readOnly(r) {
					writeError(w, http.StatusForbidden, CodeForbidden, "api key is read-only")
					return
				}
			default:
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
