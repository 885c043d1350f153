package http

import (
	"context"
	"time"

	"github.com/go-auth-gate/internal/domain"
)

// IdentityStore is the minimal interface the router requires from a user,
// OTP and allow-list backend. Both the DynamoDB and SQLite stores satisfy it.
type IdentityStore interface {
	UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	InsertOTP(ctx context.Context, c *domain.OTPCode) error
	RevokeOTPs(ctx context.Context, userID string) error
	// ConsumeOTP marks one matching, unused, unexpired code as used and
	// reports whether it did. At most one caller wins per code.
	ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error)
	ListAllowedPatterns(ctx context.Context) ([]string, error)
}
