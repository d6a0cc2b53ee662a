package google

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-auth-core/social"
)

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func mapProfile(claims *idTokenClaims) *social.Profile {
	if claims == nil {
		return nil
	}

	return &social.Profile{
		Provider:      ProviderName,
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Raw: map[string]any{
			"sub":            claims.Subject,
			"email":          claims.Email,
			"email_verified": claims.EmailVerified,
			"name":           claims.Name,
			"given_name":     claims.GivenName,
			"family_name":    claims.FamilyName,
		},
	}
}
