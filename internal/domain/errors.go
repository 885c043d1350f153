package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound = errors.New("not found")

	ErrMissingCredentials   = errors.New("missing credentials")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrUserNotFound         = errors.New("user not found")
	ErrDomainNotAllowed     = errors.New("email domain not allowed")
	ErrDirectoryAuthFailed  = errors.New("directory authentication failed")
	ErrInvalidSession       = errors.New("invalid session")
	ErrUpstreamProvider     = errors.New("upstream provider error")
	ErrUnknownStrategy      = errors.New("unknown sign-in strategy")
	ErrTooManyAttempts      = errors.New("too many attempts")
)
