package domain

// Provider names a federated identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
	ProviderLinkedIn Provider = "linkedin"
)

// StrategyID selects a credential strategy explicitly; it is never inferred from payload shape.
type StrategyID string

const (
	StrategyOAuth     StrategyID = "oauth"
	StrategyOTP       StrategyID = "verify-otp"
	StrategyDirectory StrategyID = "ldap"
)

// CanonicalIdentity is the provider-agnostic result of every sign-in strategy.
// It is folded into the session token and never persisted.
type CanonicalIdentity struct {
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	Name         string              `json:"name,omitempty"`
	Picture      string              `json:"picture,omitempty"`
	ProviderURLs map[Provider]string `json:"provider_urls,omitempty"`
}

// SetProviderURL records a provider profile URL, ignoring empty values.
func (i *CanonicalIdentity) SetProviderURL(p Provider, url string) {
	if url == "" {
		return
	}
	if i.ProviderURLs == nil {
		i.ProviderURLs = make(map[Provider]string)
	}
	i.ProviderURLs[p] = url
}
