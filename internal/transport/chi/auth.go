package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// publicPaths skip authentication.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware rejects requests without one of apiKeys as a Bearer token.
// Blank keys are ignored; no keys disables authentication.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if msg := authorize(r.Header.Get("Authorization"), keys); msg != "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize returns the rejection message, empty when header carries a valid key.
func authorize(header string, keys [][]byte) string {
	if header == "" {
		return "missing authorization header"
	}
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "authorization header must use Bearer scheme"
	}
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(token), k) == 1 {
			return ""
		}
	}
	return "invalid api key"
}
