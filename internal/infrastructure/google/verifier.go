package google

import (
	"context"
	"fmt"

	"github.com/go-auth-gate/internal/domain"
	"google.golang.org/api/idtoken"
)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify validates the Google ID token and returns the profile it asserts.
// Returns a domain.ErrUpstreamProvider-wrapped error if the token is invalid.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.GoogleProfile, error) {
	p, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %v: %w", err, domain.ErrUpstreamProvider)
	}
	return profileFromPayload(p), nil
}

func profileFromPayload(p *idtoken.Payload) *domain.GoogleProfile {
	email, _ := p.Claims["email"].(string)
	emailVerified, _ := p.Claims["email_verified"].(bool)
	name, _ := p.Claims["name"].(string)
	picture, _ := p.Claims["picture"].(string)
	return &domain.GoogleProfile{
		Subject:       p.Subject,
		Email:         email,
		EmailVerified: emailVerified,
		Name:          name,
		Picture:       picture,
	}
}
