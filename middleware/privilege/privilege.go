package privilege

import (
	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-auth-core"
)

type Config struct {
	Filter func(*fiber.Ctx) bool
	// Table defaults to auth.DefaultPrivilegeTable
	Table auth.PrivilegeTable
	// ContextKey must match the one used by the verification gate.
	ContextKey   string
	ErrorHandler fiber.ErrorHandler
	Logger       auth.Logger
}

// New returns the privilege gate. It must run after the verification gate
// and rejects requests whose claims level is below the threshold of the
// first path segment and method.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		claims, _ := auth.GetFiberClaims(c, cfg.ContextKey)

		if err := cfg.Table.Authorize(claims, c.Path(), c.Method()); err != nil {
			if auth.IsKind(err, auth.KindInsufficientPrivilege) {
				cfg.Logger.Warn("privilege check failed",
					"user_id", claims.UserID,
					"level", claims.PrivilegeLevel,
					"method", c.Method(),
					"path", c.Path(),
				)
			}
			return cfg.ErrorHandler(c, err)
		}

		return c.Next()
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Table == nil {
		cfg.Table = auth.DefaultPrivilegeTable()
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultContextKey
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ *fiber.Ctx, err error) error {
			return err
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.NopLogger{}
	}

	return cfg
}
