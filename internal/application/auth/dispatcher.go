package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-auth-gate/internal/domain"
	"github.com/go-auth-gate/internal/pkg/metrics"
)

// Credentials is the union of inputs across strategies. Each strategy reads
// only its own fields.
type Credentials struct {
	// OAuth-Federated
	Provider domain.Provider `json:"provider,omitempty"`
	Code     string          `json:"code,omitempty"`
	Verifier string          `json:"-"`

	// OTP-Verify
	Email  string `json:"email,omitempty"`
	OTP    string `json:"otp,omitempty"`
	UserID string `json:"userId,omitempty"`

	// Directory-Bind
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Strategy authenticates one kind of credential. Every failure wraps one of
// the domain sentinels.
type Strategy interface {
	ID() domain.StrategyID
	Authorize(ctx context.Context, creds Credentials) (*domain.CanonicalIdentity, error)
}

// Dispatcher routes a sign-in attempt to the strategy named by the caller.
type Dispatcher struct {
	strategies map[domain.StrategyID]Strategy
	metrics    *metrics.Metrics
}

func NewDispatcher(m *metrics.Metrics, strategies ...Strategy) *Dispatcher {
	d := &Dispatcher{strategies: make(map[domain.StrategyID]Strategy, len(strategies)), metrics: m}
	for _, s := range strategies {
		d.strategies[s.ID()] = s
	}
	return d
}

func (d *Dispatcher) Authorize(ctx context.Context, id domain.StrategyID, creds Credentials) (*domain.CanonicalIdentity, error) {
	s, ok := d.strategies[id]
	if !ok {
		d.metrics.RecordSignIn(string(id), "unknown_strategy")
		return nil, fmt.Errorf("strategy %q: %w", id, domain.ErrUnknownStrategy)
	}
	identity, err := s.Authorize(ctx, creds)
	if err != nil {
		d.metrics.RecordSignIn(string(id), outcome(err))
		slog.Warn("sign-in failed", "strategy", id, "err", err)
		return nil, err
	}
	d.metrics.RecordSignIn(string(id), "success")
	slog.Info("sign-in succeeded", "strategy", id, "user_id", identity.ID)
	return identity, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrDomainNotAllowed):
		return "domain_not_allowed"
	case errors.Is(err, domain.ErrDirectoryAuthFailed):
		return "directory_failed"
	case errors.Is(err, domain.ErrUpstreamProvider):
		return "upstream_error"
	default:
		return "error"
	}
}
