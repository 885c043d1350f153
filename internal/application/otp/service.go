package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-auth-gate/internal/domain"
	"github.com/go-auth-gate/internal/pkg/id"
	"github.com/go-auth-gate/internal/pkg/metrics"
	pkgtoken "github.com/go-auth-gate/internal/pkg/token"
)

const (
	codeDigits = 6
	defaultTTL = 10 * time.Minute
)

// Issued is the result of Generate. Code is delivered out of band and never logged.
type Issued struct {
	Code      string
	UserID    string
	ExpiresAt time.Time
}

type Service interface {
	Generate(ctx context.Context, email string) (*Issued, error)
	Verify(ctx context.Context, userID, code string) error
	Redeem(ctx context.Context, userID, code string) (*domain.User, error)
}

type store interface {
	UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	InsertOTP(ctx context.Context, c *domain.OTPCode) error
	RevokeOTPs(ctx context.Context, userID string) error
	ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error)
}

// AttemptLimiter counts verification attempts per user. Reserve is called
// before the store is consulted and must count atomically. A locked-out
// user is reported with an error wrapping domain.ErrTooManyAttempts; any
// other error means the limiter is unreachable and verification proceeds
// without it.
type AttemptLimiter interface {
	Reserve(ctx context.Context, userID string) error
	Reset(ctx context.Context, userID string) error
}

type service struct {
	store   store
	limiter AttemptLimiter
	metrics *metrics.Metrics
	ttl     time.Duration
	now     func() time.Time
}

type ServiceDeps struct {
	Store   store
	Limiter AttemptLimiter // optional
	Metrics *metrics.Metrics
	TTL     time.Duration
	Now     func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:   deps.Store,
		limiter: deps.Limiter,
		metrics: deps.Metrics,
		ttl:     deps.TTL,
		now:     deps.Now,
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Generate upserts the user keyed by email, revokes the user's outstanding
// codes and stores a fresh one.
func (s *service) Generate(ctx context.Context, email string) (*Issued, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email required: %w", domain.ErrMissingCredentials)
	}
	now := s.now().UTC()

	u, err := s.store.UpsertUser(ctx, &domain.User{UserID: id.New(), Email: email, CreatedAt: now})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	if err := s.store.RevokeOTPs(ctx, u.UserID); err != nil {
		return nil, fmt.Errorf("revoke prior codes: %w", err)
	}

	code, err := pkgtoken.NewNumericCode(codeDigits)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	c := &domain.OTPCode{
		OTPID:     id.New(),
		UserID:    u.UserID,
		Email:     u.Email,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.InsertOTP(ctx, c); err != nil {
		return nil, fmt.Errorf("insert otp: %w", err)
	}
	s.metrics.RecordOTPIssued()
	slog.Info("otp issued", "user_id", u.UserID, "expires_at", c.ExpiresAt)
	return &Issued{Code: code, UserID: u.UserID, ExpiresAt: c.ExpiresAt}, nil
}

// Verify consumes the code. At most one caller succeeds for a given code.
func (s *service) Verify(ctx context.Context, userID, code string) error {
	userID, code = strings.TrimSpace(userID), strings.TrimSpace(code)
	if userID == "" || code == "" {
		return fmt.Errorf("userId and otp required: %w", domain.ErrMissingCredentials)
	}
	if err := s.reserveAttempt(ctx, userID); err != nil {
		s.metrics.RecordOTPRejected("rate_limited")
		return err
	}

	ok, err := s.store.ConsumeOTP(ctx, userID, code, s.now().UTC())
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if !ok {
		s.metrics.RecordOTPRejected("invalid")
		return domain.ErrInvalidOrExpiredCode
	}
	s.resetLimit(ctx, userID)
	return nil
}

func (s *service) Redeem(ctx context.Context, userID, code string) (*domain.User, error) {
	if err := s.Verify(ctx, userID, code); err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *service) reserveAttempt(ctx context.Context, userID string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Reserve(ctx, userID)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrTooManyAttempts) {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	slog.Warn("otp attempt limiter unavailable", "err", err)
	return nil
}

func (s *service) resetLimit(ctx context.Context, userID string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, userID); err != nil {
		slog.Warn("could not reset otp attempts", "user_id", userID, "err", err)
	}
}
