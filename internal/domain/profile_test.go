package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoogleProfile_UnverifiedEmailDropped(t *testing.T) {
	f := GoogleProfile{Subject: "s1", Email: "a@x.com", EmailVerified: false}.Fragment()
	assert.Equal(t, "google:s1", f.ID)
	assert.Empty(t, f.Email)

	f = GoogleProfile{Subject: "s1", Email: "a@x.com", EmailVerified: true}.Fragment()
	assert.Equal(t, "a@x.com", f.Email)
}

func TestGitHubProfile_FallsBackToLogin(t *testing.T) {
	f := GitHubProfile{ID: 42, Login: "octo", HTMLURL: "https://github.com/octo"}.Fragment()
	assert.Equal(t, "github:42", f.ID)
	assert.Equal(t, "octo", f.Name)
	assert.Equal(t, "https://github.com/octo", f.ProfileURL)
}

func TestProfiles_Validate(t *testing.T) {
	assert.True(t, errors.Is(GoogleProfile{}.Validate(), ErrUpstreamProvider))
	assert.True(t, errors.Is(GitHubProfile{}.Validate(), ErrUpstreamProvider))
	assert.True(t, errors.Is(LinkedInProfile{}.Validate(), ErrUpstreamProvider))
	assert.NoError(t, LinkedInProfile{Subject: "x"}.Validate())
}

func TestCanonicalIdentity_SetProviderURL(t *testing.T) {
	var id CanonicalIdentity
	id.SetProviderURL(ProviderGitHub, "")
	assert.Nil(t, id.ProviderURLs)
	id.SetProviderURL(ProviderGitHub, "https://github.com/octo")
	assert.Equal(t, "https://github.com/octo", id.ProviderURLs[ProviderGitHub])
}
