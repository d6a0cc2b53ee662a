package social

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// StateCookieName holds the nonce between begin and callback.
	StateCookieName = "oauth_state"
	// StateTTL bounds how long a consent round trip may take.
	StateTTL = 10 * time.Minute
)

// NewState returns a fresh nonce.
func NewState() string {
	return uuid.NewString()
}

// SetStateCookie stores state for the callback. SameSite is Lax so the
// cookie survives the top level redirect back from the provider.
func SetStateCookie(c *fiber.Ctx, state string) {
	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(StateTTL.Seconds()),
		Expires:  time.Now().Add(StateTTL),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearStateCookie expires the state cookie.
func ClearStateCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// VerifyState compares the callback state with the stored nonce.
func VerifyState(c *fiber.Ctx) error {
	expected := c.Cookies(StateCookieName)
	got := c.Query("state")
	if expected == "" || got == "" {
		return ErrInvalidState
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return ErrInvalidState
	}
	return nil
}
