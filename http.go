package auth

import (
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RefreshCookieName is the cookie carrying the refresh credential.
const RefreshCookieName = "refreshToken"

// CookieOptions controls the refresh cookie attributes.
type CookieOptions struct {
	Name       string
	Path       string
	Domain     string
	MaxAge     time.Duration
	Production bool
}

// DefaultCookieOptions returns the refresh cookie settings for the given
// environment.
func DefaultCookieOptions(production bool) CookieOptions {
	return CookieOptions{
		Name:       RefreshCookieName,
		Path:       "/",
		MaxAge:     RefreshTokenTTL,
		Production: production,
	}
}

// SameSite is None in production so cross site clients keep the cookie,
// Lax otherwise.
func (o CookieOptions) SameSite() string {
	if o.Production {
		return fiber.CookieSameSiteNoneMode
	}
	return fiber.CookieSameSiteLaxMode
}

func (o CookieOptions) name() string {
	if o.Name == "" {
		return RefreshCookieName
	}
	return o.Name
}

// SetRefreshCookie writes token into the refresh cookie.
func SetRefreshCookie(c *fiber.Ctx, opts CookieOptions, token string) {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = RefreshTokenTTL
	}
	c.Cookie(&fiber.Cookie{
		Name:     opts.name(),
		Value:    token,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		HTTPOnly: true,
		Secure:   true,
		SameSite: opts.SameSite(),
	})
}

// ClearRefreshCookie expires the refresh cookie.
func ClearRefreshCookie(c *fiber.Ctx, opts CookieOptions) {
	c.Cookie(&fiber.Cookie{
		Name:     opts.name(),
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   true,
		SameSite: opts.SameSite(),
	})
}

// RefreshCookie reads the refresh credential from the request.
func RefreshCookie(c *fiber.Ctx, opts CookieOptions) string {
	return c.Cookies(opts.name())
}

// ErrorResponse is the body rendered by the error boundary.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ErrorHandler is the global error boundary. It resolves the kind of err
// and renders the matching status with a client safe message.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		kind := KindOf(err)

		var fiberErr *fiber.Error
		if kind == KindUnknown && stderrors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: fiberErr.Message})
		}

		status := StatusFor(kind)
		resp := ErrorResponse{
			Error: PublicMessage(kind),
			Code:  string(kind),
		}

		var richErr *errors.Error
		hasRich := errors.As(err, &richErr) && richErr != nil

		switch kind {
		case KindInsufficientPrivilege, KindNotFound, KindConflict:
			if hasRich {
				resp.Details = richErr.Message
			}
		case KindValidation:
			if hasRich {
				if fields, ok := richErr.Metadata["fields"]; ok {
					resp.Details = fields
				} else {
					resp.Details = richErr.Message
				}
			}
		}

		args := []any{
			"kind", kind,
			"status", status,
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		}
		if hasRich && len(richErr.Metadata) > 0 {
			args = append(args, "details", print.MaybePrettyJSON(richErr.Metadata))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request failed", args...)
		case kind == KindRefreshTokenMismatch || kind == KindInsufficientPrivilege:
			logger.Warn("request rejected", args...)
		default:
			logger.Debug("request rejected", args...)
		}

		return c.Status(status).JSON(resp)
	}
}
