package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-auth-gate/internal/application/auth"
	"github.com/go-auth-gate/internal/application/session"
	"github.com/go-auth-gate/internal/domain"
	"github.com/go-chi/chi/v5"
)

type authorizer interface {
	Authorize(ctx context.Context, id domain.StrategyID, creds auth.Credentials) (*domain.CanonicalIdentity, error)
}

// SignInHandler serves credential sign-in for the OTP and directory strategies.
type SignInHandler struct {
	auth     authorizer
	sessions session.Service
}

func NewSignInHandler(a authorizer, sessions session.Service) *SignInHandler {
	return &SignInHandler{auth: a, sessions: sessions}
}

func (h *SignInHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	strategy := domain.StrategyID(chi.URLParam(r, "strategy"))
	if strategy == domain.StrategyOAuth {
		writeError(w, http.StatusBadRequest, "oauth sign-in starts at /api/auth/oauth/{provider}/start")
		return
	}
	var creds auth.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	identity, err := h.auth.Authorize(r.Context(), strategy, creds)
	if err != nil {
		status, msg := signInFailure(err)
		writeError(w, status, msg)
		return
	}
	issued, err := h.sessions.Issue(identity)
	if err != nil {
		slog.Error("session issuance failed", "err", err)
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}
	http.SetCookie(w, issued.Cookie)
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true, UserID: identity.ID})
}

// signInFailure maps strategy errors to responses. Authentication failures
// all read "sign-in failed" so the client cannot tell a bad code from an
// unknown user or a directory rejection.
func signInFailure(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingCredentials):
		return http.StatusBadRequest, "missing credentials"
	case errors.Is(err, domain.ErrUnknownStrategy):
		return http.StatusBadRequest, "unknown sign-in strategy"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many attempts"
	case errors.Is(err, domain.ErrInvalidOrExpiredCode),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrDirectoryAuthFailed),
		errors.Is(err, domain.ErrDomainNotAllowed),
		errors.Is(err, domain.ErrUpstreamProvider):
		return http.StatusUnauthorized, "sign-in failed"
	default:
		slog.Error("sign-in error", "err", err)
		return http.StatusInternalServerError, "sign-in failed"
	}
}
