package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// AuthControllerRoutes holds the paths the controller mounts under its group.
type AuthControllerRoutes struct {
	Login   string
	Logout  string
	Refresh string
}

// AuthController serves the password login, refresh and logout endpoints.
type AuthController struct {
	Debug   bool
	Logger  Logger
	Auther  *Auther
	Cookie  CookieOptions
	Routes  *AuthControllerRoutes
	Limiter fiber.Handler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		if logger != nil {
			ac.Logger = logger
		}
		return ac
	}
}

// WithAuther sets the authenticator driving the flows.
func WithAuther(auther *Auther) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Auther = auther
		return ac
	}
}

// WithCookieOptions overrides the refresh cookie attributes.
func WithCookieOptions(opts CookieOptions) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Cookie = opts
		return ac
	}
}

// WithLoginLimiter puts handler in front of the login route.
func WithLoginLimiter(handler fiber.Handler) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Limiter = handler
		return ac
	}
}

// WithDebug dumps request payloads to the logger.
func WithDebug(debug bool) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Debug = debug
		return ac
	}
}

// NewAuthController creates the controller, it panics without an Auther.
func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Cookie: DefaultCookieOptions(false),
		Routes: &AuthControllerRoutes{
			Login:   "/login",
			Logout:  "/logout",
			Refresh: "/refresh",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	return c
}

// Register mounts the routes on router.
func (a *AuthController) Register(router fiber.Router) {
	login := []fiber.Handler{}
	if a.Limiter != nil {
		login = append(login, a.Limiter)
	}
	login = append(login, a.Login)

	router.Post(a.Routes.Login, login...)
	router.Post(a.Routes.Refresh, a.Refresh)
	router.Post(a.Routes.Logout, a.Logout)
}

// Login verifies email and password, sets the refresh cookie and returns the
// access token.
func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return WrapError(err, KindValidation, "unable to parse login payload")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	if a.Debug {
		a.Logger.Debug("login attempt", "email", payload.Email)
	}

	pair, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	SetRefreshCookie(c, a.Cookie, pair.RefreshToken)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":     "Login successful",
		"accessToken": pair.AccessToken,
	})
}

// Refresh exchanges the refresh cookie for a new access token.
func (a *AuthController) Refresh(c *fiber.Ctx) error {
	token := RefreshCookie(c, a.Cookie)
	if token == "" {
		return ErrMissingCredential
	}

	access, err := a.Auther.Refresh(c.UserContext(), token)
	if err != nil {
		if a.Debug {
			a.Logger.Debug("refresh rejected", "error", print.MaybePrettyJSON(err))
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":     "Token refresh successful",
		"accessToken": access,
	})
}

// Logout revokes the stored refresh token and clears the cookie.
func (a *AuthController) Logout(c *fiber.Ctx) error {
	token := RefreshCookie(c, a.Cookie)

	// the client copy is dropped even when the server side revocation fails
	ClearRefreshCookie(c, a.Cookie)

	if token == "" {
		return ErrMissingCredential
	}

	if err := a.Auther.Logout(c.UserContext(), token); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logout successful",
	})
}
