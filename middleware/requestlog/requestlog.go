package requestlog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-auth-core"
)

// Redacted replaces sensitive body values in the log.
const Redacted = "[REDACTED]"

var (
	defaultSensitiveKeys      = []string{"password", "refreshToken", "accessToken"}
	defaultSensitiveQueryKeys = []string{"code", "state", "token"}
)

type Config struct {
	Next   func(*fiber.Ctx) bool
	Logger auth.Logger
	// SensitiveKeys are matched case insensitively against top level body
	// keys.
	SensitiveKeys []string
	// SensitiveQueryKeys are redacted from the logged query string. The
	// OAuth callback carries its authorization code and state there.
	SensitiveQueryKeys []string
	// RequestIDKey is the locals key written by the requestid middleware.
	RequestIDKey any
}

// New logs every request with its body sanitized, then logs the outcome
// once the chain returns.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	sensitive := make(map[string]struct{}, len(cfg.SensitiveKeys))
	for _, key := range cfg.SensitiveKeys {
		sensitive[strings.ToLower(key)] = struct{}{}
	}
	sensitiveQuery := make(map[string]struct{}, len(cfg.SensitiveQueryKeys))
	for _, key := range cfg.SensitiveQueryKeys {
		sensitiveQuery[strings.ToLower(key)] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		start := time.Now()
		requestID, _ := c.Locals(cfg.RequestIDKey).(string)

		args := []any{
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
		}
		if query := SanitizeQuery(c.Queries(), sensitiveQuery); len(query) > 0 {
			args = append(args, "query", query)
		}
		if body := SanitizeBody(c.Body(), sensitive); body != nil {
			args = append(args, "body", body)
		}
		cfg.Logger.Info("Request logged", args...)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = auth.StatusFor(auth.KindOf(err))
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		cfg.Logger.Debug("Request completed",
			"request_id", requestID,
			"status", status,
			"latency", time.Since(start).String(),
		)

		return err
	}
}

// SanitizeBody decodes a JSON object body and replaces the values of the
// sensitive keys. Non object bodies are not logged.
func SanitizeBody(raw []byte, sensitive map[string]struct{}) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}

	for key := range body {
		if _, ok := sensitive[strings.ToLower(key)]; ok {
			body[key] = Redacted
		}
	}
	return body
}

// SanitizeQuery copies the query values, replacing the sensitive ones.
func SanitizeQuery(query map[string]string, sensitive map[string]struct{}) map[string]string {
	if len(query) == 0 {
		return nil
	}

	out := make(map[string]string, len(query))
	for key, value := range query {
		if _, ok := sensitive[strings.ToLower(key)]; ok {
			value = Redacted
		}
		out[key] = value
	}
	return out
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.NopLogger{}
	}

	if len(cfg.SensitiveKeys) == 0 {
		cfg.SensitiveKeys = defaultSensitiveKeys
	}

	if len(cfg.SensitiveQueryKeys) == 0 {
		cfg.SensitiveQueryKeys = defaultSensitiveQueryKeys
	}

	if cfg.RequestIDKey == nil {
		cfg.RequestIDKey = "requestid"
	}

	return cfg
}
