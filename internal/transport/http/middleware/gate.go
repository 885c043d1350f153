package middleware

import (
	"context"
	"net/http"

	"github.com/go-auth-gate/internal/application/gate"
	"github.com/go-auth-gate/internal/application/session"
	jwtinfra "github.com/go-auth-gate/internal/infrastructure/jwt"
	"github.com/go-auth-gate/internal/pkg/metrics"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// Gate applies the access decision before any handler runs. Redirects use
// 307; verified claims are injected into the request context. Decisions are
// counted for public and protected paths only.
func Gate(g *gate.Gate, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, claims := g.Decide(r.URL.Path, SessionToken(r))
			if g.Matched(r.URL.Path) {
				m.RecordGateDecision(decision.String())
			}
			switch decision {
			case gate.RedirectHome:
				http.Redirect(w, r, g.HomePath(), http.StatusTemporaryRedirect)
				return
			case gate.RedirectSignIn:
				http.Redirect(w, r, g.SignInPath(), http.StatusTemporaryRedirect)
				return
			}
			if claims != nil {
				r = r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionToken returns the raw session cookie value, or "".
func SessionToken(r *http.Request) string {
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// ClaimsFromContext extracts session claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
