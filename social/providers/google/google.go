package google

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-auth-core/social"
)

const (
	ProviderName = "google"

	defaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

// Config holds Google OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL  string
	TokenURL string

	// Keyfunc verifies the id_token signature. When nil the id_token is
	// decoded without verification, it was received directly from the
	// token endpoint over TLS.
	Keyfunc jwt.Keyfunc

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Provider implements social.Provider for Google. The exchange is the
// form encoded OAuth2 POST, the profile is read from the id_token.
type Provider struct {
	config     Config
	oauth      *oauth2.Config
	httpClient *http.Client
}

var _ social.Provider = (*Provider)(nil)

// New creates a new Google provider.
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

	client := cfg.HTTPClient
	if client == nil {
		client = social.NewHTTPClient(0)
	}

	return &Provider{
		config: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: client,
	}
}

// Name implements social.Provider.
func (p *Provider) Name() string {
	return ProviderName
}

// AuthCodeURL implements social.Provider.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange implements social.Provider. A response without an id_token is
// a failed exchange.
func (p *Provider) Exchange(ctx context.Context, code string) (*social.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeError(err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, &social.ProviderError{
			Provider:    ProviderName,
			Stage:       social.StageExchange,
			Code:        "missing_id_token",
			Description: "token response has no id_token",
		}
	}

	var scopes []string
	if raw, ok := tok.Extra("scope").(string); ok && raw != "" {
		scopes = strings.Fields(raw)
	}

	return &social.Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		IDToken:     idToken,
		ExpiresAt:   tok.Expiry,
		Scopes:      scopes,
	}, nil
}

// Profile implements social.Provider.
func (p *Provider) Profile(_ context.Context, token *social.Token) (*social.Profile, error) {
	claims, err := p.decodeIDToken(token.IDToken)
	if err != nil {
		return nil, &social.ProviderError{
			Provider:    ProviderName,
			Stage:       social.StageProfile,
			Code:        "invalid_id_token",
			Description: "unable to decode id_token",
			Err:         err,
		}
	}

	return mapProfile(claims), nil
}

func (p *Provider) decodeIDToken(raw string) (*idTokenClaims, error) {
	claims := &idTokenClaims{}

	if p.config.Keyfunc == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256"})}
	if p.config.ClientID != "" {
		opts = append(opts, jwt.WithAudience(p.config.ClientID))
	}

	if _, err := jwt.ParseWithClaims(raw, claims, p.config.Keyfunc, opts...); err != nil {
		return nil, err
	}

	if claims.Issuer != "" && !validIssuer(claims.Issuer) {
		return nil, errors.New("unexpected id_token issuer " + claims.Issuer)
	}
	return claims, nil
}

func validIssuer(iss string) bool {
	return iss == "https://accounts.google.com" || iss == "accounts.google.com"
}

func exchangeError(err error) error {
	perr := &social.ProviderError{
		Provider: ProviderName,
		Stage:    social.StageExchange,
		Err:      err,
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		perr.Code = rerr.ErrorCode
		perr.Description = rerr.ErrorDescription
		if rerr.Response != nil {
			perr.Status = rerr.Response.StatusCode
		}
	}
	return perr
}
