package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-auth-gate/internal/application/auth"
	"github.com/go-auth-gate/internal/application/session"
	"github.com/go-auth-gate/internal/domain"
	pkgtoken "github.com/go-auth-gate/internal/pkg/token"
	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
)

const (
	oauthCookieName   = "oauth_flow"
	oauthCookieMaxAge = 600
	oauthCookiePath   = "/api/auth/oauth"
)

// AuthURLBuilder builds a provider's authorization redirect.
type AuthURLBuilder interface {
	AuthCodeURL(state, verifier string) string
}

// OAuthHandler runs the authorization-code flow with state and PKCE kept in
// a short-lived HttpOnly cookie.
type OAuthHandler struct {
	providers  map[domain.Provider]AuthURLBuilder
	auth       authorizer
	sessions   session.Service
	secure     bool
	homePath   string
	signInPath string
}

type OAuthHandlerDeps struct {
	Providers  map[domain.Provider]AuthURLBuilder
	Auth       authorizer
	Sessions   session.Service
	Secure     bool
	HomePath   string
	SignInPath string
}

func NewOAuthHandler(deps OAuthHandlerDeps) *OAuthHandler {
	return &OAuthHandler{
		providers:  deps.Providers,
		auth:       deps.Auth,
		sessions:   deps.Sessions,
		secure:     deps.Secure,
		homePath:   deps.HomePath,
		signInPath: deps.SignInPath,
	}
}

func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	provider := domain.Provider(chi.URLParam(r, "provider"))
	b, ok := h.providers[provider]
	if !ok {
		writeError(w, http.StatusNotFound, "provider not enabled")
		return
	}
	state, err := pkgtoken.NewState()
	if err != nil {
		slog.Error("oauth state generation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}
	verifier := oauth2.GenerateVerifier()
	http.SetCookie(w, h.flowCookie(string(provider)+"|"+state+"|"+verifier, oauthCookieMaxAge))
	http.Redirect(w, r, b.AuthCodeURL(state, verifier), http.StatusFound)
}

func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := domain.Provider(chi.URLParam(r, "provider"))
	http.SetCookie(w, h.flowCookie("", -1))

	verifier, ok := h.checkFlow(r, provider)
	if !ok {
		h.fail(w, r, provider, "state mismatch")
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.fail(w, r, provider, "provider error: "+e)
		return
	}
	identity, err := h.auth.Authorize(r.Context(), domain.StrategyOAuth, auth.Credentials{
		Provider: provider,
		Code:     q.Get("code"),
		Verifier: verifier,
	})
	if err != nil {
		h.fail(w, r, provider, err.Error())
		return
	}
	issued, err := h.sessions.Issue(identity)
	if err != nil {
		h.fail(w, r, provider, err.Error())
		return
	}
	http.SetCookie(w, issued.Cookie)
	http.Redirect(w, r, h.homePath, http.StatusTemporaryRedirect)
}

// checkFlow validates the flow cookie against the callback's provider and
// state, and returns the PKCE verifier.
func (h *OAuthHandler) checkFlow(r *http.Request, provider domain.Provider) (string, bool) {
	c, err := r.Cookie(oauthCookieName)
	if err != nil {
		return "", false
	}
	parts := strings.SplitN(c.Value, "|", 3)
	if len(parts) != 3 || parts[0] != string(provider) {
		return "", false
	}
	state := r.URL.Query().Get("state")
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(parts[1])) != 1 {
		return "", false
	}
	return parts[2], true
}

func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request, provider domain.Provider, reason string) {
	slog.Warn("oauth sign-in failed", "provider", provider, "reason", reason)
	target := h.signInPath + "?" + url.Values{"error": {"signin_failed"}}.Encode()
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) flowCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     oauthCookieName,
		Value:    value,
		Path:     oauthCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
