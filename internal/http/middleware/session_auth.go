package middleware

import (
	"net/http"
	"strings"

	"github.com/fisioagenda/scheduling-platform/internal/session"
)

// sessionCookie is the portal's session cookie name. Browser clients carry
// the token there; API clients may use a Bearer header instead.
const sessionCookie = "portal_session"

// RequireSession verifies the session token on every request and stows the
// resolved account in the context. Requests without a valid token get 401.
func RequireSession(verifier *session.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(sessionCookie); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				http.Error(w, "missing session token", http.StatusUnauthorized)
				return
			}
			acct, err := verifier.Parse(token)
			if err != nil {
				http.Error(w, "invalid session token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithAccount(r.Context(), acct)))
		})
	}
}

// RequireAdmin rejects non-staff sessions. It must run after RequireSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, ok := session.FromContext(r.Context())
		if !ok {
			http.Error(w, "missing session token", http.StatusUnauthorized)
			return
		}
		if acct.Role != session.RoleAdmin {
			http.Error(w, "staff session required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
