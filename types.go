package auth

import (
	"context"
	"fmt"
)

// Logger is the logging surface used across the package. Arguments are
// key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// IdentityStore is the storage collaborator used by the core. Every lookup
// excludes soft deleted identities.
type IdentityStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	// UpdateRefreshToken stores token against the identity, an empty token
	// clears the stored value.
	UpdateRefreshToken(ctx context.Context, id int64, token string) error
}

// TokenIssuer creates credential pairs for a resolved identity.
type TokenIssuer interface {
	IssueAccessToken(p Principal) (string, error)
	IssueRefreshToken(ctx context.Context, p Principal) (string, error)
}

// TokenVerifier checks access credentials without touching storage.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*Claims, error)
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }

func (defLogger) print(level, msg string, args ...any) {
	fmt.Println(append([]any{"[" + level + "] AUTH", msg}, args...)...)
}

// NopLogger discards every entry.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
