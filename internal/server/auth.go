package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/interviewly-rag/internal/logging"
)

// authRealm is advertised in WWW-Authenticate challenges.
const authRealm = `Bearer realm="irag"`

// authMiddleware requires "Authorization: Bearer <apiKey>" on every request
// it wraps. An empty apiKey disables the check; New logs that once at
// startup. Token values never reach the log.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		switch {
		case !ok:
			reject(w, r, authRealm, "authorization required", "missing bearer token")
		case subtle.ConstantTimeCompare([]byte(token), want) != 1:
			reject(w, r, authRealm+`, error="invalid_token"`, "invalid token", "token mismatch")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func reject(w http.ResponseWriter, r *http.Request, challenge, msg, reason string) {
	logging.FromContext(r.Context()).Warn("auth: request rejected",
		slog.String("path", r.URL.Path),
		slog.String("reason", reason),
	)
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, http.StatusUnauthorized, msg)
}

// bearerToken parses an Authorization header value. The scheme is matched
// case-insensitively; ok is false when the header is absent, uses another
// scheme, or carries an empty token.
func bearerToken(header string) (token string, ok bool) {
	scheme, rest, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(rest)
	return token, token != ""
}
