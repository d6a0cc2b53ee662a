package google

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"

	auth "github.com/goliatone/go-auth-core"
)

// DefaultJWKSURL publishes the keys signing Google id_tokens.
const DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// NewJWKS fetches the key set at url and keeps it refreshed in the
// background. Call EndBackground on shutdown.
func NewJWKS(url string, logger auth.Logger) (*keyfunc.JWKS, error) {
	if url == "" {
		url = DefaultJWKSURL
	}
	if logger == nil {
		logger = auth.NopLogger{}
	}

	return keyfunc.Get(url, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to refresh google JWKS", "error", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
}
