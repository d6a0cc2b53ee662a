package github

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-auth-core/social"
)

const (
	ProviderName = "github"

	defaultAuthURL   = "https://github.com/login/oauth/authorize"
	defaultTokenURL  = "https://github.com/login/oauth/access_token"
	defaultUserURL   = "https://api.github.com/user"
	defaultEmailsURL = "https://api.github.com/user/emails"
)

// Config holds GitHub OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL   string
	TokenURL  string
	UserURL   string
	EmailsURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default GitHub scopes.
func DefaultScopes() []string {
	return []string{"user:email"}
}

// Provider implements social.Provider for GitHub. The code exchange is a
// JSON POST, the profile is /user followed by /user/emails.
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ social.Provider = (*Provider)(nil)

// New creates a new GitHub provider.
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
	if cfg.UserURL == "" {
		cfg.UserURL = defaultUserURL
	}
	if cfg.EmailsURL == "" {
		cfg.EmailsURL = defaultEmailsURL
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
		"client_id":    {p.config.ClientID},
		"redirect_uri": {p.config.CallbackURL},
		"scope":        {strings.Join(p.config.Scopes, " ")},
	}
	if state != "" {
		params.Set("state", state)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Exchange implements social.Provider.
func (p *Provider) Exchange(ctx context.Context, code string) (*social.Token, error) {
	payload, err := json.Marshal(map[string]string{
		"code":          code,
		"client_id":     p.config.ClientID,
		"client_secret": p.config.ClientSecret,
		"redirect_uri":  p.config.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	var tokenResp githubTokenResponse
	err = social.DoJSON(ctx, p.httpClient, social.Request{
		Provider: ProviderName,
		Stage:    social.StageExchange,
		Method:   http.MethodPost,
		URL:      p.config.TokenURL,
		Headers:  map[string]string{"Content-Type": "application/json"},
		Body:     bytes.NewReader(payload),
	}, &tokenResp)
	if err != nil {
		return nil, err
	}

	// GitHub answers exchange errors with a 200 and an error field.
	if tokenResp.Error != "" {
		return nil, &social.ProviderError{
			Provider:    ProviderName,
			Stage:       social.StageExchange,
			Status:      http.StatusOK,
			Code:        tokenResp.Error,
			Description: tokenResp.ErrorDesc,
		}
	}
	if tokenResp.AccessToken == "" {
		return nil, &social.ProviderError{
			Provider:    ProviderName,
			Stage:       social.StageExchange,
			Code:        "missing_access_token",
			Description: "missing access token",
		}
	}

	return &social.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		Scopes:      splitCommaScopes(tokenResp.Scope),
	}, nil
}

// Profile implements social.Provider.
func (p *Provider) Profile(ctx context.Context, token *social.Token) (*social.Profile, error) {
	var user githubUser
	if err := p.get(ctx, p.config.UserURL, token.AccessToken, &user); err != nil {
		return nil, err
	}

	var emails []githubEmail
	if err := p.get(ctx, p.config.EmailsURL, token.AccessToken, &emails); err != nil {
		return nil, err
	}

	email := primaryVerifiedEmail(emails)

	return &social.Profile{
		Provider:      ProviderName,
		Subject:       formatID(user.ID),
		Email:         email,
		EmailVerified: email != "",
		Name:          firstNonEmpty(user.Name, user.Login),
		Raw: map[string]any{
			"id":    user.ID,
			"login": user.Login,
			"name":  user.Name,
		},
	}, nil
}

func (p *Provider) get(ctx context.Context, endpoint, accessToken string, out any) error {
	return social.DoJSON(ctx, p.httpClient, social.Request{
		Provider: ProviderName,
		Stage:    social.StageProfile,
		URL:      endpoint,
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
			"Accept":        "application/vnd.github+json",
		},
	}, out)
}

type githubTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// primaryVerifiedEmail returns the first address that is both primary and
// verified, empty when there is none.
func primaryVerifiedEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitCommaScopes(scopes string) []string {
	if scopes == "" {
		return nil
	}

	parts := strings.Split(scopes, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
