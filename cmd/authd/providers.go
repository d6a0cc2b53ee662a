package main

import (
	"github.com/golang-jwt/jwt/v5"

	auth "github.com/goliatone/go-auth-core"
	"github.com/goliatone/go-auth-core/config"
	"github.com/goliatone/go-auth-core/social"
	"github.com/goliatone/go-auth-core/social/providers/facebook"
	"github.com/goliatone/go-auth-core/social/providers/github"
	"github.com/goliatone/go-auth-core/social/providers/google"
)

// buildProviders returns the providers with client credentials. The
// returned func stops the JWKS refresh when one was started.
func buildProviders(cfg *config.Config, logger auth.Logger) ([]social.Provider, func(), error) {
	client := social.NewHTTPClient(cfg.ProviderTimeout)
	providers := []social.Provider{}
	stop := func() {}

	if cfg.Google.Enabled() {
		var keyFunc jwt.Keyfunc
		if cfg.GoogleJWKSURL != "" {
			jwks, err := google.NewJWKS(cfg.GoogleJWKSURL, logger)
			if err != nil {
				return nil, stop, err
			}
			keyFunc = jwks.Keyfunc
			stop = jwks.EndBackground
		}

		providers = append(providers, google.New(google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			CallbackURL:  cfg.Google.CallbackURL,
			Keyfunc:      keyFunc,
			HTTPClient:   client,
		}))
	}

	if cfg.GitHub.Enabled() {
		providers = append(providers, github.New(github.Config{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			CallbackURL:  cfg.GitHub.CallbackURL,
			HTTPClient:   client,
		}))
	}

	if cfg.Facebook.Enabled() {
		providers = append(providers, facebook.New(facebook.Config{
			ClientID:     cfg.Facebook.ClientID,
			ClientSecret: cfg.Facebook.ClientSecret,
			CallbackURL:  cfg.Facebook.CallbackURL,
			HTTPClient:   client,
		}))
	}

	for _, p := range providers {
		logger.Info("identity provider enabled", "provider", p.Name())
	}

	return providers, stop, nil
}
