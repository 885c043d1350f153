package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-auth-gate/internal/application/otp"
	"github.com/go-auth-gate/internal/domain"
)

// ProfileExchanger runs a provider's authorization-code exchange.
type ProfileExchanger interface {
	Exchange(ctx context.Context, code, verifier string) (domain.ProviderProfile, error)
}

// OAuthStrategy exchanges a provider code and normalizes the resulting profile.
type OAuthStrategy struct {
	exchangers map[domain.Provider]ProfileExchanger
	normalizer *Normalizer
}

func NewOAuthStrategy(exchangers map[domain.Provider]ProfileExchanger, n *Normalizer) *OAuthStrategy {
	return &OAuthStrategy{exchangers: exchangers, normalizer: n}
}

func (s *OAuthStrategy) ID() domain.StrategyID { return domain.StrategyOAuth }

func (s *OAuthStrategy) Authorize(ctx context.Context, creds Credentials) (*domain.CanonicalIdentity, error) {
	if creds.Provider == "" || creds.Code == "" {
		return nil, fmt.Errorf("provider and code required: %w", domain.ErrMissingCredentials)
	}
	ex, ok := s.exchangers[creds.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %q not enabled: %w", creds.Provider, domain.ErrUnknownStrategy)
	}
	profile, err := ex.Exchange(ctx, creds.Code, creds.Verifier)
	if err != nil {
		if !errors.Is(err, domain.ErrUpstreamProvider) {
			err = fmt.Errorf("%v: %w", err, domain.ErrUpstreamProvider)
		}
		return nil, err
	}
	return s.normalizer.Normalize(ctx, domain.StrategyOAuth, &domain.CanonicalIdentity{}, profile)
}

// OTPStrategy redeems a one-time passcode.
type OTPStrategy struct {
	otp otp.Service
}

func NewOTPStrategy(svc otp.Service) *OTPStrategy {
	return &OTPStrategy{otp: svc}
}

func (s *OTPStrategy) ID() domain.StrategyID { return domain.StrategyOTP }

func (s *OTPStrategy) Authorize(ctx context.Context, creds Credentials) (*domain.CanonicalIdentity, error) {
	if strings.TrimSpace(creds.Email) == "" || strings.TrimSpace(creds.OTP) == "" || strings.TrimSpace(creds.UserID) == "" {
		return nil, fmt.Errorf("email, otp and userId required: %w", domain.ErrMissingCredentials)
	}
	u, err := s.otp.Redeem(ctx, creds.UserID, creds.OTP)
	if err != nil {
		return nil, err
	}
	return &domain.CanonicalIdentity{ID: u.UserID, Email: u.Email}, nil
}

// DirectoryBinder proves a username/password pair against a directory.
type DirectoryBinder interface {
	Bind(ctx context.Context, username, password string) error
}

// DirectoryStrategy authenticates by binding to the configured directory.
type DirectoryStrategy struct {
	binder DirectoryBinder
}

func NewDirectoryStrategy(b DirectoryBinder) *DirectoryStrategy {
	return &DirectoryStrategy{binder: b}
}

func (s *DirectoryStrategy) ID() domain.StrategyID { return domain.StrategyDirectory }

// Authorize never returns the directory's own error; it is logged instead.
func (s *DirectoryStrategy) Authorize(ctx context.Context, creds Credentials) (*domain.CanonicalIdentity, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, fmt.Errorf("username and password required: %w", domain.ErrMissingCredentials)
	}
	if err := s.binder.Bind(ctx, username, creds.Password); err != nil {
		slog.Warn("directory bind failed", "username", username, "err", err)
		return nil, domain.ErrDirectoryAuthFailed
	}
	return &domain.CanonicalIdentity{ID: username}, nil
}
