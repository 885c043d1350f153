// Package redis counts OTP verification attempts per user in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-auth-gate/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
	keyPrefix          = "otp:att:"
)

var (
	ErrRateLimited = fmt.Errorf("otp attempts exhausted: %w", domain.ErrTooManyAttempts)
	ErrUnavailable = errors.New("attempt limiter unavailable")
)

// AttemptLimiter locks a user out of OTP verification after maxAttempts
// attempts inside window. The window starts at the first attempt; a
// successful verification clears it.
type AttemptLimiter struct {
	rdb         goredis.UniversalClient
	maxAttempts int64
	window      time.Duration
}

// NewAttemptLimiter falls back to 5 attempts per 15 minutes for zero values.
func NewAttemptLimiter(rdb goredis.UniversalClient, maxAttempts int, window time.Duration) *AttemptLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &AttemptLimiter{rdb: rdb, maxAttempts: int64(maxAttempts), window: window}
}

// NewClient connects to addr and pings it.
func NewClient(ctx context.Context, addr, password string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

func (l *AttemptLimiter) key(userID string) string {
	return keyPrefix + userID
}

// reserveScript counts the attempt and opens the window on the first one in
// a single round trip, so concurrent callers each see a distinct count.
var reserveScript = goredis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Reserve claims one verification attempt before the code is checked. It
// fails with ErrRateLimited once more than maxAttempts have been claimed
// inside the window.
func (l *AttemptLimiter) Reserve(ctx context.Context, userID string) error {
	count, err := reserveScript.Run(ctx, l.rdb, []string{l.key(userID)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count > l.maxAttempts {
		return ErrRateLimited
	}
	return nil
}

func (l *AttemptLimiter) Reset(ctx context.Context, userID string) error {
	if err := l.rdb.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
