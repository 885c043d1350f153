package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreSQLite = "sqlite"
	StoreDynamo = "dynamo"

	PatternSourceStore  = "store"
	PatternSourceConfig = "config"

	minSessionSecretLen = 32
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string   `env:"APP_PORT" envDefault:"3000"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","` // CORS allowed origins
	TrustProxy     bool     `env:"TRUST_PROXY"`                                         // honour X-Forwarded-For / X-Real-IP

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	OTPTTL           time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPMaxAttempts   int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	OTPAttemptWindow time.Duration `env:"OTP_ATTEMPT_WINDOW" envDefault:"15m"`
	RedisAddr        string        `env:"REDIS_ADDR"` // empty disables the OTP attempt limiter
	RedisPassword    string        `env:"REDIS_PASSWORD"`

	StoreBackend   string       `env:"STORE_BACKEND" envDefault:"sqlite"`
	SQLitePath     string       `env:"SQLITE_PATH" envDefault:"./auth.db"`
	AWSRegion      string       `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string       `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string       `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string       `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables `envPrefix:"DYNAMO_TABLE_"`

	AllowedEmailSource   string   `env:"ALLOWED_EMAIL_SOURCE" envDefault:"store"`
	AllowedEmailPatterns []string `env:"ALLOWED_EMAIL_PATTERNS" envSeparator:","`
	SeedEmailPatterns    []string `env:"SEED_ALLOWED_EMAIL_PATTERNS" envDefault:"@aganitha\\.ai$" envSeparator:","`

	OAuthProviders []string      `env:"OAUTH_PROVIDERS" envSeparator:","`
	Google         OAuthProvider `envPrefix:"GOOGLE_"`
	GitHub         OAuthProvider `envPrefix:"GITHUB_"`
	LinkedIn       OAuthProvider `envPrefix:"LINKEDIN_"`
	PostLoginPath  string        `env:"POST_LOGIN_PATH" envDefault:"/dashboard"`
	SignInPath     string        `env:"SIGN_IN_PATH" envDefault:"/"`
	ProtectedPaths []string      `env:"PROTECTED_PATHS" envDefault:"/dashboard,/profile" envSeparator:","`

	LDAPEnabled     bool          `env:"LDAP_ENABLED"`
	LDAPURL         string        `env:"LDAP_URL"`
	LDAPBaseDN      string        `env:"LDAP_BASE_DN"`
	LDAPUserAttr    string        `env:"LDAP_USER_ATTR" envDefault:"uid"`
	LDAPBindTimeout time.Duration `env:"LDAP_BIND_TIMEOUT" envDefault:"5s"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@example.com"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string `env:"USERS" envDefault:"users"`
	OTPCodes      string `env:"OTP_CODES" envDefault:"otp_codes"`
	AllowedEmails string `env:"ALLOWED_EMAILS" envDefault:"allowed_emails"`
}

// OAuthProvider holds the client registration for one federated provider.
type OAuthProvider struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Load reads all configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.OAuthProviders = trimCSV(cfg.OAuthProviders)
	cfg.AllowedEmailPatterns = trimCSV(cfg.AllowedEmailPatterns)
	cfg.SeedEmailPatterns = trimCSV(cfg.SeedEmailPatterns)
	cfg.ProtectedPaths = trimCSV(cfg.ProtectedPaths)
	cfg.AllowedOrigins = trimCSV(cfg.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing or inconsistent setting at once. An enabled
// provider with absent credentials is an error, never a silent disable.
func (c *Config) Validate() error {
	var errs []error
	if len(c.SessionSecret) < minSessionSecretLen {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLen))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	switch c.StoreBackend {
	case StoreSQLite, StoreDynamo:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q not supported", c.StoreBackend))
	}
	switch c.AllowedEmailSource {
	case PatternSourceStore:
	case PatternSourceConfig:
		if len(c.AllowedEmailPatterns) == 0 {
			errs = append(errs, errors.New("ALLOWED_EMAIL_PATTERNS required when ALLOWED_EMAIL_SOURCE=config"))
		}
	default:
		errs = append(errs, fmt.Errorf("ALLOWED_EMAIL_SOURCE %q not supported", c.AllowedEmailSource))
	}
	for _, name := range c.OAuthProviders {
		p, ok := c.Provider(name)
		if !ok {
			errs = append(errs, fmt.Errorf("OAUTH_PROVIDERS: unknown provider %q", name))
			continue
		}
		prefix := strings.ToUpper(name)
		if p.ClientID == "" || p.ClientSecret == "" || p.RedirectURL == "" {
			errs = append(errs, fmt.Errorf("%s_CLIENT_ID, %s_CLIENT_SECRET and %s_REDIRECT_URL are required", prefix, prefix, prefix))
		}
	}
	if c.LDAPEnabled {
		if c.LDAPURL == "" || c.LDAPBaseDN == "" {
			errs = append(errs, errors.New("LDAP_URL and LDAP_BASE_DN are required when LDAP_ENABLED=true"))
		}
		if c.LDAPBindTimeout <= 0 {
			errs = append(errs, errors.New("LDAP_BIND_TIMEOUT must be positive"))
		}
	}
	return errors.Join(errs...)
}

// Provider returns the client registration for a provider name.
func (c *Config) Provider(name string) (OAuthProvider, bool) {
	switch name {
	case "google":
		return c.Google, true
	case "github":
		return c.GitHub, true
	case "linkedin":
		return c.LinkedIn, true
	}
	return OAuthProvider{}, false
}

// IsProduction controls the Secure attribute on cookies.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// trimCSV removes empty entries from a string slice.
func trimCSV(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
