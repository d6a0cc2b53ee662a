package facebook

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-auth-core/social"
)

const (
	ProviderName = "facebook"

	defaultAuthURL    = "https://www.facebook.com/v16.0/dialog/oauth"
	defaultTokenURL   = "https://graph.facebook.com/v16.0/oauth/access_token"
	defaultProfileURL = "https://graph.facebook.com/me"
	profileFields     = "id,name,email"
)

// Config holds Facebook OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	ProfileURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Facebook scopes.
func DefaultScopes() []string {
	return []string{"email", "public_profile"}
}

// Provider implements social.Provider for Facebook. The exchange is a GET
// with the parameters in the query string, the profile is graph /me.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.Provider = (*Provider)(nil)

// New creates a new Facebook provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultProfileURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = social.NewHTTPClient(0)
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements social.Provider.
func (p *Provider) Name() string {
	return ProviderName
}

// AuthCodeURL implements social.Provider.
func (p *Provider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"scope":         {strings.Join(p.config.Scopes, ",")},
		"response_type": {"code"},
	}
	if state != "" {
		params.Set("state", state)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Exchange implements social.Provider.
func (p *Provider) Exchange(ctx context.Context, code string) (*social.Token, error) {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.CallbackURL},
		"code":          {code},
	}

	var tokenResp facebookTokenResponse
	err := social.DoJSON(ctx, p.httpClient, social.Request{
		Provider: ProviderName,
		Stage:    social.StageExchange,
		Method:   http.MethodGet,
		URL:      p.config.TokenURL + "?" + params.Encode(),
	}, &tokenResp)
	if err != nil {
		return nil, err
	}

	if tokenResp.AccessToken == "" {
		return nil, &social.ProviderError{
			Provider:    ProviderName,
			Stage:       social.StageExchange,
			Code:        "missing_access_token",
			Description: "missing access token",
		}
	}

	token := &social.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
	}
	if tokenResp.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}
	return token, nil
}

// Profile implements social.Provider.
func (p *Provider) Profile(ctx context.Context, token *social.Token) (*social.Profile, error) {
	params := url.Values{
		"fields":       {profileFields},
		"access_token": {token.AccessToken},
	}

	var me facebookUser
	err := social.DoJSON(ctx, p.httpClient, social.Request{
		Provider: ProviderName,
		Stage:    social.StageProfile,
		URL:      p.config.ProfileURL + "?" + params.Encode(),
	}, &me)
	if err != nil {
		return nil, err
	}

	return &social.Profile{
		Provider: ProviderName,
		Subject:  me.ID,
		Email:    me.Email,
		// Facebook only returns confirmed addresses.
		EmailVerified: me.Email != "",
		Name:          me.Name,
		Raw: map[string]any{
			"id":    me.ID,
			"name":  me.Name,
			"email": me.Email,
		},
	}, nil
}

type facebookTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type facebookUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
