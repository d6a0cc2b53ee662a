package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 30 * time.Minute
	RefreshTokenTTL = 24 * time.Hour

	// MinSecretLength is the shortest accepted signing secret.
	MinSecretLength = 10
)

// TokenConfig holds the signing material for both credential classes.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
}

// Validate checks the signing secrets.
func (c TokenConfig) Validate() error {
	if len(c.AccessSecret) < MinSecretLength {
		return errors.New(fmt.Sprintf("access token secret must be at least %d characters", MinSecretLength), errors.CategoryBadInput)
	}
	if len(c.RefreshSecret) < MinSecretLength {
		return errors.New(fmt.Sprintf("refresh token secret must be at least %d characters", MinSecretLength), errors.CategoryBadInput)
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("access and refresh token secrets must differ", errors.CategoryBadInput)
	}
	return nil
}

// TokenService manages the lifecycle of access and refresh credentials.
// Access tokens are verified statelessly, refresh tokens are bound to the
// value stored against the identity.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	issuer     string
	store      IdentityStore
	now        func() time.Time
	logger     Logger
}

var (
	_ TokenIssuer   = (*TokenService)(nil)
	_ TokenVerifier = (*TokenService)(nil)
)

// TokenServiceOption configures a TokenService.
type TokenServiceOption func(*TokenService)

// WithTokenLogger sets the logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenClock overrides the time source used to issue and verify tokens.
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a TokenService persisting refresh tokens in store.
func NewTokenService(cfg TokenConfig, store IdentityStore, opts ...TokenServiceOption) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("identity store is required", errors.CategoryBadInput)
	}

	ts := &TokenService{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		issuer:     cfg.Issuer,
		store:      store,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts, nil
}

// IssueAccessToken signs a short lived access credential.
func (ts *TokenService) IssueAccessToken(p Principal) (string, error) {
	return ts.sign(p, TokenUseAccess, ts.accessKey, AccessTokenTTL)
}

// IssueRefreshToken signs a refresh credential and stores it against the
// identity, replacing the previously active one.
func (ts *TokenService) IssueRefreshToken(ctx context.Context, p Principal) (string, error) {
	token, err := ts.sign(p, TokenUseRefresh, ts.refreshKey, RefreshTokenTTL)
	if err != nil {
		return "", err
	}

	if err := ts.store.UpdateRefreshToken(ctx, p.UserID, token); err != nil {
		ts.logger.Error("TokenService failed to persist refresh token", "user_id", p.UserID, "error", err)
		return "", err
	}

	return token, nil
}

// VerifyAccessToken validates signature and expiry with the access key.
func (ts *TokenService) VerifyAccessToken(token string) (*Claims, error) {
	return ts.parse(token, TokenUseAccess, ts.accessKey)
}

// VerifyRefreshToken validates the credential and requires it to be the one
// currently stored for the identity.
func (ts *TokenService) VerifyRefreshToken(ctx context.Context, token string) (*Claims, error) {
	claims, _, err := ts.ResolveRefreshToken(ctx, token)
	return claims, err
}

// ResolveRefreshToken verifies token like VerifyRefreshToken and also
// returns the stored identity it is bound to.
func (ts *TokenService) ResolveRefreshToken(ctx context.Context, token string) (*Claims, *User, error) {
	claims, err := ts.parse(token, TokenUseRefresh, ts.refreshKey)
	if err != nil {
		return nil, nil, err
	}

	user, err := ts.store.FindByEmail(ctx, claims.Email)
	if err != nil {
		return nil, nil, err
	}

	if user.RefreshToken == "" || user.RefreshToken != token {
		ts.logger.Warn("TokenService refresh token does not match stored value", "user_id", user.ID)
		return nil, nil, ErrRefreshTokenMismatch
	}

	return claims, user, nil
}

// RevokeRefreshToken clears the stored refresh credential. Revoking an
// identity without an active credential, or one that no longer exists, is
// not an error.
func (ts *TokenService) RevokeRefreshToken(ctx context.Context, id int64) error {
	err := ts.store.UpdateRefreshToken(ctx, id, "")
	if err != nil && !IsKind(err, KindIdentityNotFound) {
		return err
	}
	return nil
}

func (ts *TokenService) sign(p Principal, use TokenUse, key []byte, ttl time.Duration) (string, error) {
	now := ts.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:         p.UserID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Email:          p.Email,
		PrivilegeLevel: p.PrivilegeLevel,
		RoleName:       p.RoleName,
		Use:            use,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

func (ts *TokenService) parse(tokenString string, use TokenUse, key []byte) (*Claims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, WrapError(err, KindInvalidToken, "invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	// a credential of the other class never verifies here
	if claims.Use != use {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
