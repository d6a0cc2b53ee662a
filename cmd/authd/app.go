package main

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"

	auth "github.com/goliatone/go-auth-core"
	"github.com/goliatone/go-auth-core/activitymap"
	"github.com/goliatone/go-auth-core/config"
	"github.com/goliatone/go-auth-core/metrics"
	"github.com/goliatone/go-auth-core/middleware/jwtware"
	"github.com/goliatone/go-auth-core/middleware/privilege"
	"github.com/goliatone/go-auth-core/middleware/requestlog"
	"github.com/goliatone/go-auth-core/social"
)

// LoggerFactory returns a named logger for a component.
type LoggerFactory func(name string) auth.Logger

// Deps are the collaborators the HTTP application is built from.
type Deps struct {
	Config    *config.Config
	Store     *auth.Store
	Providers []social.Provider
	Metrics   *metrics.Collector
	Logger    LoggerFactory
	// Now overrides the token clock, tests only
	Now func() time.Time
}

// NewApp wires the token lifecycle, the gates and the controllers into a
// fiber application.
func NewApp(deps Deps) (*fiber.App, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = func(string) auth.Logger { return auth.NopLogger{} }
	}

	tokenOpts := []auth.TokenServiceOption{auth.WithTokenLogger(logger("tokens"))}
	if deps.Now != nil {
		tokenOpts = append(tokenOpts, auth.WithTokenClock(deps.Now))
	}

	users := deps.Store.Users()
	tokens, err := auth.NewTokenService(cfg.TokenConfig(), users, tokenOpts...)
	if err != nil {
		return nil, err
	}

	sinks := auth.ActivitySinks{activityLogger(logger("activity"))}
	if deps.Metrics != nil {
		sinks = append(sinks, deps.Metrics)
	}

	auther := auth.NewAuthenticator(users, tokens).
		WithLogger(logger("auth")).
		WithActivitySink(sinks)

	app := fiber.New(fiber.Config{
		AppName:      "authd",
		ErrorHandler: auth.ErrorHandler(logger("http")),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins(), ","),
		AllowCredentials: true,
	}))
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
	}
	app.Use(requestlog.New(requestlog.Config{
		Logger: logger("requests"),
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics" || c.Path() == "/healthz"
		},
	}))
	if cfg.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: time.Minute,
		}))
	}

	app.Get("/healthz", healthHandler(deps.Store))
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.Handler())
	}

	withDeadline := requestDeadline(cfg.RequestTimeout)
	cookie := auth.DefaultCookieOptions(cfg.IsProduction())

	authGroup := app.Group("/auth", withDeadline)

	controllerOpts := []auth.AuthControllerOption{
		auth.WithAuther(auther),
		auth.WithControllerLogger(logger("auth:ctrl")),
		auth.WithCookieOptions(cookie),
	}
	if cfg.LoginRateLimitMax > 0 {
		controllerOpts = append(controllerOpts, auth.WithLoginLimiter(limiter.New(limiter.Config{
			Max:        cfg.LoginRateLimitMax,
			Expiration: time.Minute,
		})))
	}
	auth.NewAuthController(controllerOpts...).Register(authGroup)

	federation := social.NewFederation(users, deps.Providers...).
		WithLogger(logger("social"))
	social.NewHTTPController(federation, auther, social.HTTPConfig{
		Cookie: cookie,
		Logger: logger("social:ctrl"),
	}).Register(authGroup)

	usersGroup := app.Group("/users",
		withDeadline,
		jwtware.New(jwtware.Config{
			Verifier: tokens,
			Logger:   logger("jwtware"),
		}),
		privilege.New(privilege.Config{
			Logger: logger("privilege"),
		}),
	)
	auth.NewUsersController(users, logger("users")).Register(usersGroup)

	return app, nil
}

// requestDeadline bounds the handlers that follow it.
func requestDeadline(d time.Duration) fiber.Handler {
	next := func(c *fiber.Ctx) error { return c.Next() }
	if d <= 0 {
		return next
	}
	return timeout.NewWithContext(next, d)
}

func healthHandler(store *auth.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func activityLogger(logger auth.Logger) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
		record := activitymap.Normalize(e, activitymap.WithDefaultChannel("authd"))
		args := []any{
			"verb", record.Verb,
			"actor_id", record.ActorID,
			"channel", record.Channel,
			"occurred_at", record.OccurredAt,
		}
		if len(record.Metadata) > 0 {
			args = append(args, "metadata", print.MaybePrettyJSON(record.Metadata))
		}
		logger.Info("auth activity", args...)
		return nil
	})
}
