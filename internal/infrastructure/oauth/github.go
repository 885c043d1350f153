package oauth

import (
	"context"
	"strings"

	"github.com/go-auth-gate/internal/config"
	"github.com/go-auth-gate/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const githubAPI = "https://api.github.com"

// GitHub reads GET /user, falling back to GET /user/emails when the public
// profile hides the address.
type GitHub struct {
	config  *oauth2.Config
	apiBase string
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func NewGitHub(reg config.OAuthProvider) *GitHub {
	return &GitHub{
		config:  oauthConfig(reg, endpoints.GitHub, "read:user", "user:email"),
		apiBase: githubAPI,
	}
}

func (g *GitHub) Provider() domain.Provider { return domain.ProviderGitHub }

func (g *GitHub) AuthCodeURL(state, verifier string) string {
	return authCodeURL(g.config, state, verifier)
}

func (g *GitHub) Exchange(ctx context.Context, code, verifier string) (domain.ProviderProfile, error) {
	tok, err := exchange(ctx, g.config, code, verifier)
	if err != nil {
		return nil, err
	}
	client := g.config.Client(ctx, tok)
	base := strings.TrimRight(g.apiBase, "/")

	var p domain.GitHubProfile
	if err := getJSON(ctx, client, base+"/user", &p); err != nil {
		return nil, err
	}
	if p.Email == "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, base+"/user/emails", &emails); err != nil {
			return nil, err
		}
		p.Email = primaryEmail(emails)
	}
	return p, nil
}

// primaryEmail returns the primary verified address, or "" when none is verified.
func primaryEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}
