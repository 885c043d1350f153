package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-auth-gate/internal/domain"
	jwtinfra "github.com/go-auth-gate/internal/infrastructure/jwt"
)

// CookieName is the cookie carrying the session token.
const CookieName = "session"

// Issued is a freshly signed session and the cookie that carries it.
type Issued struct {
	Token     string
	Cookie    *http.Cookie
	ExpiresAt time.Time
}

// Service issues and verifies stateless sessions. There is no server-side
// session table: a token is valid until it expires or the secret rotates.
type Service interface {
	Issue(identity *domain.CanonicalIdentity) (*Issued, error)
	// Verify returns nil for any token that is malformed, tampered or expired.
	Verify(token string) *jwtinfra.Claims
	ClearCookie() *http.Cookie
}

type tokenProvider interface {
	Sign(c jwtinfra.Claims) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
	Expiry() time.Duration
}

type service struct {
	tokens tokenProvider
	secure bool
}

type ServiceDeps struct {
	Tokens tokenProvider
	Secure bool // set the Secure cookie attribute (production)
}

func NewService(deps ServiceDeps) Service {
	return &service{tokens: deps.Tokens, secure: deps.Secure}
}

func (s *service) Issue(identity *domain.CanonicalIdentity) (*Issued, error) {
	if identity == nil || identity.ID == "" {
		return nil, errors.New("identity without id")
	}
	signed, err := s.tokens.Sign(jwtinfra.Claims{
		UserID:      identity.ID,
		GithubURL:   identity.ProviderURLs[domain.ProviderGitHub],
		LinkedinURL: identity.ProviderURLs[domain.ProviderLinkedIn],
	})
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	c, err := s.tokens.Verify(signed)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	expiresAt := c.ExpiresAt.Time
	return &Issued{
		Token:     signed,
		Cookie:    s.cookie(signed, int(s.tokens.Expiry().Seconds()), expiresAt),
		ExpiresAt: expiresAt,
	}, nil
}

func (s *service) Verify(token string) *jwtinfra.Claims {
	if token == "" {
		return nil
	}
	c, err := s.tokens.Verify(token)
	if err != nil {
		slog.Debug("session rejected", "err", err)
		return nil
	}
	return c
}

func (s *service) ClearCookie() *http.Cookie {
	return s.cookie("", -1, time.Unix(0, 0))
}

func (s *service) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires.UTC(),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
