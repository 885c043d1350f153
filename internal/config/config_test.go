package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, "otp_codes", cfg.DynamoTables.OTPCodes)
	assert.Equal(t, []string{`@aganitha\.ai$`}, cfg.SeedEmailPatterns)
	assert.Equal(t, []string{"/dashboard", "/profile"}, cfg.ProtectedPaths)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ShortSecretRejected(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")
	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET")
}

func TestLoad_EnabledProviderWithoutSecretIsAnError(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("OAUTH_PROVIDERS", "github, google")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("GITHUB_REDIRECT_URL", "http://localhost/cb")

	_, err := Load()
	assert.ErrorContains(t, err, "GOOGLE_CLIENT_ID")
	assert.NotContains(t, err.Error(), "GITHUB_CLIENT_ID")
}

func TestLoad_UnknownProvider(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("OAUTH_PROVIDERS", "myspace")
	_, err := Load()
	assert.ErrorContains(t, err, "unknown provider")
}

func TestLoad_LDAPRequiresEndpoint(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("LDAP_ENABLED", "true")
	_, err := Load()
	assert.ErrorContains(t, err, "LDAP_URL")

	t.Setenv("LDAP_URL", "ldap://localhost:389")
	t.Setenv("LDAP_BASE_DN", "ou=people,dc=example,dc=org")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "uid", cfg.LDAPUserAttr)
	assert.Equal(t, 5*time.Second, cfg.LDAPBindTimeout)
}

func TestLoad_ConfigPatternSourceNeedsPatterns(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("ALLOWED_EMAIL_SOURCE", "config")
	_, err := Load()
	assert.ErrorContains(t, err, "ALLOWED_EMAIL_PATTERNS")

	t.Setenv("ALLOWED_EMAIL_PATTERNS", `@x\.com$, ,@y\.org$`)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{`@x\.com$`, `@y\.org$`}, cfg.AllowedEmailPatterns)
}
