// Package config loads the service configuration from the environment and an
// optional .env file.
package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/spf13/viper"

	auth "github.com/goliatone/go-auth-core"
)

// DefaultCORSOrigins are allowed when CORS_ORIGINS is unset.
var DefaultCORSOrigins = []string{
	"http://127.0.0.1:5000",
	"http://localhost:5000",
	"http://localhost",
	"http://127.0.0.1",
}

// Config holds application configuration loaded from the environment.
type Config struct {
	Port        int    `mapstructure:"PORT"`
	DatabaseURL string `mapstructure:"DATABASE_USERS_URL"`

	AccessTokenSecret  string `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	TokenIssuer        string `mapstructure:"TOKEN_ISSUER"`

	// Env is APP_ENV, NODE_ENV is read as a fallback.
	Env     string `mapstructure:"APP_ENV"`
	NodeEnv string `mapstructure:"NODE_ENV"`

	Google   Provider `mapstructure:"-"`
	GitHub   Provider `mapstructure:"-"`
	Facebook Provider `mapstructure:"-"`

	GoogleJWKSURL string `mapstructure:"GOOGLE_JWKS_URL"`

	CORSOrigins       string        `mapstructure:"CORS_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ProviderTimeout   time.Duration `mapstructure:"PROVIDER_TIMEOUT"`
	BcryptCost        int           `mapstructure:"BCRYPT_COST"`
	RateLimitMax      int           `mapstructure:"RATE_LIMIT_MAX"`
	LoginRateLimitMax int           `mapstructure:"LOGIN_RATE_LIMIT_MAX"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
}

// Provider holds the OAuth client settings of one identity provider.
type Provider struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether the provider has client credentials.
func (p Provider) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path. A missing file is ignored.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // ignore ErrConfigFileNotFound
	}

	v.AutomaticEnv()

	v.SetDefault("PORT", 5000)
	v.SetDefault("DATABASE_USERS_URL", "file:users.db?cache=shared")
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("TOKEN_ISSUER", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("NODE_ENV", "")
	for _, name := range []string{"GOOGLE", "GITHUB", "FACEBOOK"} {
		v.SetDefault(name+"_CLIENT_ID", "")
		v.SetDefault(name+"_CLIENT_SECRET", "")
		v.SetDefault(name+"_CALLBACK_URL", "")
	}
	v.SetDefault("GOOGLE_JWKS_URL", "")
	v.SetDefault("CORS_ORIGINS", strings.Join(DefaultCORSOrigins, ","))
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("PROVIDER_TIMEOUT", "10s")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("LOGIN_RATE_LIMIT_MAX", 10)
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "config: unable to decode environment")
	}

	cfg.Google = providerFrom(v, "GOOGLE")
	cfg.GitHub = providerFrom(v, "GITHUB")
	cfg.Facebook = providerFrom(v, "FACEBOOK")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func providerFrom(v *viper.Viper, name string) Provider {
	return Provider{
		ClientID:     v.GetString(name + "_CLIENT_ID"),
		ClientSecret: v.GetString(name + "_CLIENT_SECRET"),
		CallbackURL:  v.GetString(name + "_CALLBACK_URL"),
	}
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.DatabaseURL, validation.Required),
		validation.Field(&c.AccessTokenSecret, validation.Required, validation.Length(auth.MinSecretLength, 0)),
		validation.Field(&c.RefreshTokenSecret, validation.Required, validation.Length(auth.MinSecretLength, 0),
			validation.NotIn(c.AccessTokenSecret).Error("must differ from ACCESS_TOKEN_SECRET")),
		validation.Field(&c.GoogleJWKSURL, is.URL),
		validation.Field(&c.BcryptCost, validation.Min(4), validation.Max(31)),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.ProviderTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RateLimitMax, validation.Min(0)),
		validation.Field(&c.LoginRateLimitMax, validation.Min(0)),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "config: invalid configuration")
	}
	return nil
}

// Environment returns APP_ENV, falling back to NODE_ENV.
func (c *Config) Environment() string {
	if c.Env != "" {
		return c.Env
	}
	return c.NodeEnv
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment(), "production")
}

// AllowedOrigins returns the CORS allow list.
func (c *Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return DefaultCORSOrigins
	}
	return out
}

// TokenConfig returns the token lifecycle settings.
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		AccessSecret:  c.AccessTokenSecret,
		RefreshSecret: c.RefreshTokenSecret,
		Issuer:        c.TokenIssuer,
	}
}

// Redacted returns a copy safe to log, secrets are masked.
func (c *Config) Redacted() Config {
	out := *c
	out.AccessTokenSecret = mask(out.AccessTokenSecret)
	out.RefreshTokenSecret = mask(out.RefreshTokenSecret)
	out.Google.ClientSecret = mask(out.Google.ClientSecret)
	out.GitHub.ClientSecret = mask(out.GitHub.ClientSecret)
	out.Facebook.ClientSecret = mask(out.Facebook.ClientSecret)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
