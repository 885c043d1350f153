package handler

import (
	"net/http"

	"github.com/go-auth-gate/internal/application/session"
	"github.com/go-auth-gate/internal/transport/http/middleware"
)

// SessionHandler exposes the current session and sign-out.
type SessionHandler struct {
	sessions session.Service
}

func NewSessionHandler(sessions session.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	c := h.sessions.Verify(middleware.SessionToken(r))
	if c == nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{
		UserID:      c.UserID,
		GithubURL:   c.GithubURL,
		LinkedinURL: c.LinkedinURL,
		ExpiresAt:   c.ExpiresAt.Unix(),
	})
}

// Logout clears the cookie. The token itself stays valid until it expires.
func (h *SessionHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, h.sessions.ClearCookie())
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "signed out"})
}
