package middleware

import (
	"context"
	"net/http"
	"strings"
)

// SessionVerifier resolves a session token to the case id it was issued for.
// *goIntake.Engine satisfies it.
type SessionVerifier interface {
	SessionTokensEnabled() bool
	SessionCaseID(token string) (string, error)
}

type caseIDContextKey struct{}

// CaseIDFromContext returns the case id SessionGuard attached to the request.
func CaseIDFromContext(ctx context.Context) (string, bool) {
	caseID, ok := ctx.Value(caseIDContextKey{}).(string)
	return caseID, ok && caseID != ""
}

// SessionGuard requires a valid bearer session token when the engine issues
// them. With session tokens disabled requests pass through untouched.
func SessionGuard(engine SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid_session_token")
				return
			}
			if !engine.SessionTokensEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid_session_token")
				return
			}

			caseID, err := engine.SessionCaseID(token)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid_session_token")
				return
			}

			ctx := context.WithValue(r.Context(), caseIDContextKey{}, caseID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	return bearerToken(value)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
