package handler

import (
	"net/http"

	"github.com/go-auth-gate/internal/transport/http/middleware"
)

// PagesHandler serves placeholders for the gated pages. The UI itself lives elsewhere.
type PagesHandler struct{}

func NewPagesHandler() *PagesHandler { return &PagesHandler{} }

func (h *PagesHandler) SignIn(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "sign in"})
}

func (h *PagesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "welcome " + c.UserID})
}

func (h *PagesHandler) Profile(w http.ResponseWriter, r *http.Request) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
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
