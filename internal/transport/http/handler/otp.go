package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-auth-gate/internal/application/otp"
	"github.com/go-auth-gate/internal/application/session"
	"github.com/go-auth-gate/internal/domain"
	"github.com/go-auth-gate/internal/pkg/validate"
)

type emailPolicy interface {
	IsAllowed(ctx context.Context, email string) (bool, error)
}

// OTPSender delivers a code to the user.
type OTPSender interface {
	SendOTP(to, code string, ttl time.Duration) error
}

// OTPHandler serves the OTP request and verify endpoints.
type OTPHandler struct {
	otp      otp.Service
	policy   emailPolicy
	sender   OTPSender
	sessions session.Service
}

func NewOTPHandler(svc otp.Service, policy emailPolicy, sender OTPSender, sessions session.Service) *OTPHandler {
	return &OTPHandler{otp: svc, policy: policy, sender: sender, sessions: sessions}
}

func (h *OTPHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	allowed, err := h.policy.IsAllowed(r.Context(), req.Email)
	if err != nil {
		slog.Error("email policy check failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to process request")
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "email domain not allowed")
		return
	}
	issued, err := h.otp.Generate(r.Context(), req.Email)
	if err != nil {
		slog.Error("otp generation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to process request")
		return
	}
	if err := h.sender.SendOTP(req.Email, issued.Code, time.Until(issued.ExpiresAt).Round(time.Minute)); err != nil {
		slog.Error("otp delivery failed", "user_id", issued.UserID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to process request")
		return
	}
	writeJSON(w, http.StatusOK, OTPRequestEnvelope{UserID: issued.UserID})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if validate.MissingRequired(req) {
		writeError(w, http.StatusBadRequest, "userId and otp are required")
		return
	}
	u, err := h.otp.Redeem(r.Context(), req.UserID, req.OTP)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, "too many attempts")
		return
	case errors.Is(err, domain.ErrInvalidOrExpiredCode), errors.Is(err, domain.ErrUserNotFound):
		slog.Info("otp rejected", "user_id", req.UserID, "err", err)
		writeError(w, http.StatusBadRequest, "invalid or expired otp")
		return
	case errors.Is(err, domain.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "userId and otp are required")
		return
	default:
		slog.Error("otp verification failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to verify otp")
		return
	}

	issued, err := h.sessions.Issue(&domain.CanonicalIdentity{ID: u.UserID, Email: u.Email})
	if err != nil {
		slog.Error("session issuance failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to verify otp")
		return
	}
	http.SetCookie(w, issued.Cookie)
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}
