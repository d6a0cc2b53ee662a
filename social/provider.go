package social

import (
	"context"
	"time"
)

// Provider is one OAuth2 identity provider. Implementations differ only in
// endpoints and in the shape of the exchange and profile calls.
type Provider interface {
	// Name returns the provider identifier (e.g., "github", "google").
	Name() string

	// AuthCodeURL returns the consent URL carrying the client id, callback
	// URL, scopes and state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a provider token.
	Exchange(ctx context.Context, code string) (*Token, error)

	// Profile resolves the caller's profile from the provider token.
	Profile(ctx context.Context, token *Token) (*Profile, error)
}

// Token represents an OAuth2 token response.
type Token struct {
	AccessToken string
	TokenType   string
	// IDToken is only returned by OpenID Connect providers.
	IDToken   string
	ExpiresAt time.Time
	Scopes    []string
	Raw       map[string]any
}

// Profile is the normalized provider identity. It is never persisted.
type Profile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Raw           map[string]any
}

// HasEmail reports whether the provider returned a real email.
func (p *Profile) HasEmail() bool {
	return p != nil && p.Email != ""
}

// PlaceholderEmailDomain is appended to the provider name to build the
// lookup key of identities whose provider withheld the email.
const PlaceholderEmailDomain = "oauth.local"

// PlaceholderEmail returns "<subject>@<provider>.oauth.local".
func PlaceholderEmail(provider, subject string) string {
	return subject + "@" + provider + "." + PlaceholderEmailDomain
}

// LookupEmail returns the email used to find the local identity.
func (p *Profile) LookupEmail() string {
	if p.HasEmail() {
		return p.Email
	}
	return PlaceholderEmail(p.Provider, p.Subject)
}
