package google

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-auth-core/social"
)

const testKID = "test-key"

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	base := jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            "client-id",
		"sub":            "110169484474386276334",
		"email":          "ada@example.com",
		"email_verified": true,
		"name":           "Ada Lovelace",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range claims {
		base[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, base)
	token.Header["kid"] = testKID
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func newTokenServer(t *testing.T, idToken string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("code") {
		case "good-code":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "ya29.token",
				"token_type":   "Bearer",
				"expires_in":   3599,
				"scope":        "openid email profile",
				"id_token":     idToken,
			})
		case "no-id-token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "ya29.token",
				"token_type":   "Bearer",
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":             "invalid_grant",
				"error_description": "Bad Request",
			})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestProvider(server *httptest.Server, keyfunc jwt.Keyfunc) *Provider {
	return New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		CallbackURL:  "https://example.com/auth/google/callback",
		TokenURL:     server.URL,
		HTTPClient:   server.Client(),
		Keyfunc:      keyfunc,
	})
}

func TestProviderAuthCodeURL(t *testing.T) {
	provider := New(Config{ClientID: "client-id", CallbackURL: "https://example.com/cb"})

	parsed, err := url.Parse(provider.AuthCodeURL("nonce"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://example.com/cb", query.Get("redirect_uri"))
	assert.Equal(t, "openid email profile", query.Get("scope"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "nonce", query.Get("state"))
}

func TestProviderExchangeAndProfile(t *testing.T) {
	key := newKey(t)
	idToken := signIDToken(t, key, nil)
	provider := newTestProvider(newTokenServer(t, idToken), nil)
	ctx := context.Background()

	token, err := provider.Exchange(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", token.AccessToken)
	assert.Equal(t, idToken, token.IDToken)
	assert.Equal(t, []string{"openid", "email", "profile"}, token.Scopes)

	profile, err := provider.Profile(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "110169484474386276334", profile.Subject)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Ada Lovelace", profile.Name)
}

func TestProviderExchangeFailures(t *testing.T) {
	provider := newTestProvider(newTokenServer(t, ""), nil)
	ctx := context.Background()

	_, err := provider.Exchange(ctx, "no-id-token")
	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "missing_id_token", perr.Code)

	_, err = provider.Exchange(ctx, "bad-code")
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "invalid_grant", perr.Code)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, social.StageExchange, perr.Stage)
}

func TestProviderProfile_VerifiedIDToken(t *testing.T) {
	key := newKey(t)
	keyfunc := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	provider := newTestProvider(newTokenServer(t, ""), keyfunc)
	ctx := context.Background()

	profile, err := provider.Profile(ctx, &social.Token{IDToken: signIDToken(t, key, nil)})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", profile.Email)

	cases := map[string]string{
		"wrong audience": signIDToken(t, key, jwt.MapClaims{"aud": "someone-else"}),
		"wrong issuer":   signIDToken(t, key, jwt.MapClaims{"iss": "https://evil.example.com"}),
		"expired":        signIDToken(t, key, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}),
		"other key":      signIDToken(t, newKey(t), nil),
		"garbage":        "not.a.token",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := provider.Profile(ctx, &social.Token{IDToken: raw})
			var perr *social.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "invalid_id_token", perr.Code)
		})
	}
}

func TestNewJWKS(t *testing.T) {
	key := newKey(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKID,
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	defer server.Close()

	jwks, err := NewJWKS(server.URL, nil)
	require.NoError(t, err)
	defer jwks.EndBackground()

	provider := New(Config{ClientID: "client-id", Keyfunc: jwks.Keyfunc})

	profile, err := provider.Profile(context.Background(), &social.Token{IDToken: signIDToken(t, key, nil)})
	require.NoError(t, err)
	assert.Equal(t, "110169484474386276334", profile.Subject)
}
