package jwtware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-auth-core"
)

var defaultTokenLookup = "header:" + fiber.HeaderAuthorization

// ValidationListener is invoked after a token has been verified and before
// the request proceeds.
type ValidationListener func(c *fiber.Ctx, claims *auth.Claims) error

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	// ErrorHandler defaults to returning the error so the application error
	// boundary renders it.
	ErrorHandler fiber.ErrorHandler
	ContextKey   string
	TokenLookup  string
	AuthScheme   string
	// Verifier is required
	Verifier            auth.TokenVerifier
	ValidationListeners []ValidationListener
	Logger              auth.Logger
}

// New returns the credential verification gate. A verified request carries
// its claims in the locals under ContextKey and in the user context.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := ExtractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Verifier.VerifyAccessToken(raw)
		if err != nil {
			cfg.Logger.Debug("access token rejected", "path", c.Path(), "kind", auth.KindOf(err))
			return cfg.ErrorHandler(c, err)
		}

		if err := cfg.runValidationListeners(c, claims); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)
		c.SetUserContext(auth.WithClaimsContext(c.UserContext(), claims))

		return cfg.SuccessHandler(c)
	}
}

// ExtractRawToken runs the extractors in order and returns the first token
// found. When none yields a token a malformed credential wins over a missing
// one.
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	var firstErr error = auth.ErrMissingCredential

	for _, extractor := range extractors {
		raw, err := extractor(c)
		if raw != "" && err == nil {
			return raw, nil
		}
		if auth.IsKind(err, auth.KindMalformedCredential) {
			firstErr = err
		}
	}

	return "", firstErr
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Verifier == nil {
		panic("AUTH: JWT middleware configuration: Verifier is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ *fiber.Ctx, err error) error {
			return err
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.NopLogger{}
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(c *fiber.Ctx, claims *auth.Claims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, claims); err != nil {
			return err
		}
	}
	return nil
}

// GetExtractors parses a lookup like "header:Authorization,cookie:jwt".
func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch source {
		case "header":
			extractors = append(extractors, jwtFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(name))
		case "param":
			extractors = append(extractors, jwtFromParam(name))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(name))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader extracts "<scheme> <token>" from the request header. The
// scheme must match exactly.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		value := c.Get(header)
		if value == "" {
			return "", auth.ErrMissingCredential
		}

		l := len(authScheme)
		if len(value) <= l || value[:l] != authScheme || value[l] != ' ' {
			return "", auth.ErrMalformedCredential
		}

		token := strings.TrimSpace(value[l:])
		if token == "" {
			return "", auth.ErrMalformedCredential
		}
		return token, nil
	}
}

// jwtFromQuery extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", auth.ErrMissingCredential
		}
		return token, nil
	}
}

// jwtFromParam extracts token from the url param.
func jwtFromParam(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", auth.ErrMissingCredential
		}
		return token, nil
	}
}

// jwtFromCookie extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", auth.ErrMissingCredential
		}
		return token, nil
	}
}
