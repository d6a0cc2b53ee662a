package social

import (
	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-auth-core"
)

// HTTPController handles the consent redirect and callback routes.
type HTTPController struct {
	federation *Federation
	auther     *auth.Auther
	config     HTTPConfig
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// Cookie configures the refresh cookie set on success
	Cookie auth.CookieOptions

	// SkipStateCheck disables the oauth_state nonce check on callback
	SkipStateCheck bool

	Logger auth.Logger
}

// NewHTTPController creates a new social auth HTTP controller.
func NewHTTPController(federation *Federation, auther *auth.Auther, cfg HTTPConfig) *HTTPController {
	if cfg.Cookie.Name == "" {
		cfg.Cookie = auth.DefaultCookieOptions(cfg.Cookie.Production)
	}
	if cfg.Logger == nil {
		cfg.Logger = auth.NopLogger{}
	}

	return &HTTPController{
		federation: federation,
		auther:     auther,
		config:     cfg,
	}
}

// Register mounts the routes on group, usually the /auth group.
func (h *HTTPController) Register(group fiber.Router) {
	group.Get("/providers", h.ListProviders)
	group.Get("/:provider/callback", h.Callback)
	group.Get("/:provider", h.Begin)
}

// ListProviders returns the configured providers.
func (h *HTTPController) ListProviders(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"providers": h.federation.Names(),
	})
}

// Begin redirects to the provider consent page.
func (h *HTTPController) Begin(c *fiber.Ctx) error {
	state := NewState()

	redirectURL, err := h.federation.Begin(c.Params("provider"), state)
	if err != nil {
		return err
	}

	SetStateCookie(c, state)
	return c.Redirect(redirectURL, fiber.StatusFound)
}

// Callback completes the flow and issues the token pair.
func (h *HTTPController) Callback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	ctx := c.UserContext()

	if _, err := h.federation.Provider(provider); err != nil {
		return err
	}

	if !h.config.SkipStateCheck {
		if err := VerifyState(c); err != nil {
			h.auther.FederationFailed(ctx, provider, err)
			return err
		}
	}
	ClearStateCookie(c)

	if errCode := c.Query("error"); errCode != "" {
		err := exchangeFailed(provider, &ProviderError{
			Provider:    provider,
			Stage:       StageExchange,
			Code:        errCode,
			Description: c.Query("error_description"),
		})
		h.auther.FederationFailed(ctx, provider, err)
		return err
	}

	user, _, err := h.federation.Complete(ctx, provider, c.Query("code"))
	if err != nil {
		h.config.Logger.Info("federated login failed", "provider", provider, "kind", auth.KindOf(err))
		h.auther.FederationFailed(ctx, provider, err)
		return err
	}

	pair, err := h.auther.FederatedLogin(ctx, provider, user)
	if err != nil {
		return err
	}

	auth.SetRefreshCookie(c, h.config.Cookie, pair.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":     "Login successful",
		"accessToken": pair.AccessToken,
	})
}
