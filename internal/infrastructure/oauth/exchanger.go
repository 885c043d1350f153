// Package oauth runs the authorization-code exchange for each federated
// provider and returns the provider's profile.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-auth-gate/internal/config"
	"github.com/go-auth-gate/internal/domain"
	"github.com/go-auth-gate/internal/infrastructure/google"
	"golang.org/x/oauth2"
)

const maxProfileBytes = 1 << 20

// Exchanger turns an authorization code into a provider profile.
type Exchanger interface {
	Provider() domain.Provider
	// AuthCodeURL builds the provider redirect carrying state and the PKCE
	// challenge derived from verifier.
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (domain.ProviderProfile, error)
}

// FromConfig builds an exchanger for every provider listed in OAUTH_PROVIDERS.
func FromConfig(cfg *config.Config) (map[domain.Provider]Exchanger, error) {
	out := make(map[domain.Provider]Exchanger, len(cfg.OAuthProviders))
	for _, name := range cfg.OAuthProviders {
		reg, ok := cfg.Provider(name)
		if !ok {
			return nil, fmt.Errorf("unknown oauth provider %q", name)
		}
		switch domain.Provider(name) {
		case domain.ProviderGoogle:
			out[domain.ProviderGoogle] = NewGoogle(reg, google.NewVerifier(reg.ClientID))
		case domain.ProviderGitHub:
			out[domain.ProviderGitHub] = NewGitHub(reg)
		case domain.ProviderLinkedIn:
			out[domain.ProviderLinkedIn] = NewLinkedIn(reg)
		}
	}
	return out, nil
}

func oauthConfig(reg config.OAuthProvider, endpoint oauth2.Endpoint, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
		RedirectURL:  reg.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

func authCodeURL(c *oauth2.Config, state, verifier string) string {
	return c.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func exchange(ctx context.Context, c *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	tok, err := c.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %v: %w", err, domain.ErrUpstreamProvider)
	}
	return tok, nil
}

// getJSON fetches url with the token-bearing client and decodes into dst.
func getJSON(ctx context.Context, client *http.Client, url string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %v: %w", url, err, domain.ErrUpstreamProvider)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %w", url, resp.StatusCode, domain.ErrUpstreamProvider)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %v: %w", url, err, domain.ErrUpstreamProvider)
	}
	return nil
}
