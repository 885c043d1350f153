package auth

import (
	"context"
	"fmt"

	"github.com/go-auth-gate/internal/domain"
)

// EmailPolicy decides whether an email may sign in.
type EmailPolicy interface {
	IsAllowed(ctx context.Context, email string) (bool, error)
}

// Normalizer folds a provider profile into a canonical identity and applies
// sign-in policy. Google and GitHub identities must carry an allowed email;
// LinkedIn is not domain-restricted.
type Normalizer struct {
	policy EmailPolicy
}

func NewNormalizer(p EmailPolicy) *Normalizer {
	return &Normalizer{policy: p}
}

func (n *Normalizer) Normalize(ctx context.Context, strategy domain.StrategyID, base *domain.CanonicalIdentity, profile domain.ProviderProfile) (*domain.CanonicalIdentity, error) {
	// OTP and directory flows have already authenticated the subject.
	if strategy == domain.StrategyOTP || strategy == domain.StrategyDirectory {
		return base, nil
	}
	if profile == nil {
		return nil, fmt.Errorf("no profile data: %w", domain.ErrUpstreamProvider)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	out := domain.CanonicalIdentity{}
	if base != nil {
		out = *base
	}
	frag := profile.Fragment()
	if out.ID == "" {
		out.ID = frag.ID
	}
	if frag.Email != "" {
		out.Email = frag.Email
	}
	if frag.Name != "" {
		out.Name = frag.Name
	}
	if frag.Picture != "" {
		out.Picture = frag.Picture
	}
	switch profile.Provider() {
	case domain.ProviderGitHub, domain.ProviderLinkedIn:
		out.SetProviderURL(profile.Provider(), frag.ProfileURL)
	}

	switch profile.Provider() {
	case domain.ProviderGoogle, domain.ProviderGitHub:
		if out.Email == "" {
			return nil, fmt.Errorf("%s profile without email: %w", profile.Provider(), domain.ErrDomainNotAllowed)
		}
		ok, err := n.policy.IsAllowed(ctx, out.Email)
		if err != nil {
			return nil, fmt.Errorf("check email policy: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%s email %s: %w", profile.Provider(), out.Email, domain.ErrDomainNotAllowed)
		}
	}
	return &out, nil
}
