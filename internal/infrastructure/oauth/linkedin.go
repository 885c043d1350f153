package oauth

import (
	"context"

	"github.com/go-auth-gate/internal/config"
	"github.com/go-auth-gate/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const linkedinUserinfo = "https://api.linkedin.com/v2/userinfo"

// LinkedIn reads the OIDC userinfo document.
type LinkedIn struct {
	config      *oauth2.Config
	userinfoURL string
}

func NewLinkedIn(reg config.OAuthProvider) *LinkedIn {
	ep := endpoints.LinkedIn
	// LinkedIn rejects client credentials sent in the Authorization header.
	ep.AuthStyle = oauth2.AuthStyleInParams
	return &LinkedIn{
		config:      oauthConfig(reg, ep, "openid", "profile", "email"),
		userinfoURL: linkedinUserinfo,
	}
}

func (l *LinkedIn) Provider() domain.Provider { return domain.ProviderLinkedIn }

func (l *LinkedIn) AuthCodeURL(state, verifier string) string {
	return authCodeURL(l.config, state, verifier)
}

func (l *LinkedIn) Exchange(ctx context.Context, code, verifier string) (domain.ProviderProfile, error) {
	tok, err := exchange(ctx, l.config, code, verifier)
	if err != nil {
		return nil, err
	}
	var p domain.LinkedInProfile
	if err := getJSON(ctx, l.config.Client(ctx, tok), l.userinfoURL, &p); err != nil {
		return nil, err
	}
	return p, nil
}
