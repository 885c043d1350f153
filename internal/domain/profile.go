package domain

import (
	"fmt"
	"strconv"
)

// ProviderProfile is the closed set of profile shapes returned by OAuth/OIDC providers.
// Each variant validates itself and adapts into an IdentityFragment.
type ProviderProfile interface {
	Provider() Provider
	Validate() error
	Fragment() IdentityFragment
	isProviderProfile()
}

// IdentityFragment is the part of a CanonicalIdentity a provider profile contributes.
type IdentityFragment struct {
	ID         string
	Email      string
	Name       string
	Picture    string
	ProfileURL string
}

// GoogleProfile holds verified claims from a Google ID token.
type GoogleProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

func (GoogleProfile) Provider() Provider { return ProviderGoogle }
func (GoogleProfile) isProviderProfile() {}

func (p GoogleProfile) Validate() error {
	if p.Subject == "" {
		return fmt.Errorf("google profile without subject: %w", ErrUpstreamProvider)
	}
	return nil
}

// Fragment drops the email when Google has not verified it.
func (p GoogleProfile) Fragment() IdentityFragment {
	f := IdentityFragment{ID: string(ProviderGoogle) + ":" + p.Subject, Name: p.Name, Picture: p.Picture}
	if p.EmailVerified {
		f.Email = p.Email
	}
	return f
}

// GitHubProfile mirrors the fields used from GET /user.
type GitHubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
}

func (GitHubProfile) Provider() Provider { return ProviderGitHub }
func (GitHubProfile) isProviderProfile() {}

func (p GitHubProfile) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("github profile without id: %w", ErrUpstreamProvider)
	}
	return nil
}

func (p GitHubProfile) Fragment() IdentityFragment {
	name := p.Name
	if name == "" {
		name = p.Login
	}
	return IdentityFragment{
		ID:         string(ProviderGitHub) + ":" + strconv.FormatInt(p.ID, 10),
		Email:      p.Email,
		Name:       name,
		Picture:    p.AvatarURL,
		ProfileURL: p.HTMLURL,
	}
}

// LinkedInProfile mirrors the OIDC userinfo document.
type LinkedInProfile struct {
	Subject          string `json:"sub"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	EmailVerified    bool   `json:"email_verified"`
	Picture          string `json:"picture"`
	PublicProfileURL string `json:"publicProfileUrl"`
}

func (LinkedInProfile) Provider() Provider { return ProviderLinkedIn }
func (LinkedInProfile) isProviderProfile() {}

func (p LinkedInProfile) Validate() error {
	if p.Subject == "" {
		return fmt.Errorf("linkedin profile without subject: %w", ErrUpstreamProvider)
	}
	return nil
}

func (p LinkedInProfile) Fragment() IdentityFragment {
	return IdentityFragment{
		ID:         string(ProviderLinkedIn) + ":" + p.Subject,
		Email:      p.Email,
		Name:       p.Name,
		Picture:    p.Picture,
		ProfileURL: p.PublicProfileURL,
	}
}
