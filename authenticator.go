package auth

import (
	"context"
	"time"
)

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Auther drives the password, federated, refresh and logout flows on top of
// the token service.
type Auther struct {
	provider     *UserProvider
	tokens       *TokenService
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store IdentityStore, tokens *TokenService) *Auther {
	return &Auther{
		provider:     NewUserProvider(store),
		tokens:       tokens,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.provider.WithLogger(logger)
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokens
}

// Login verifies a password credential and issues a token pair.
func (s *Auther) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.emitAuthEvent(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Kind:      KindOf(err),
			Metadata:  map[string]any{"identifier": email},
		})
		return nil, err
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID,
	})
	return pair, nil
}

// FederatedLogin issues a token pair for an identity resolved by a third
// party provider.
func (s *Auther) FederatedLogin(ctx context.Context, provider string, user *User) (*TokenPair, error) {
	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEvent{
		EventType: ActivityEventSocialLogin,
		UserID:    user.ID,
		Provider:  provider,
	})
	return pair, nil
}

// FederationFailed records a failed third party login.
func (s *Auther) FederationFailed(ctx context.Context, provider string, err error) {
	s.emitAuthEvent(ctx, ActivityEvent{
		EventType: ActivityEventSocialFailure,
		Provider:  provider,
		Kind:      KindOf(err),
	})
}

// IssuePair signs an access token and a stored refresh token for user.
func (s *Auther) IssuePair(ctx context.Context, user *User) (*TokenPair, error) {
	if user == nil {
		return nil, ErrIdentityNotFound
	}

	principal := PrincipalFromUser(user)

	access, err := s.tokens.IssueAccessToken(principal)
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokens.IssueRefreshToken(ctx, principal)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// Refresh exchanges the active refresh credential for a new access token.
// The access token reflects the stored identity, not the refresh claims, so
// role changes apply on the next refresh. The refresh credential itself is
// left untouched.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrMissingCredential
	}

	_, user, err := s.tokens.ResolveRefreshToken(ctx, refreshToken)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEvent{
			EventType: ActivityEventRefreshFailure,
			Kind:      KindOf(err),
		})
		return "", err
	}

	access, err := s.tokens.IssueAccessToken(PrincipalFromUser(user))
	if err != nil {
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		UserID:    user.ID,
	})
	return access, nil
}

// Logout revokes the session bound to refreshToken.
func (s *Auther) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrMissingCredential
	}

	claims, err := s.tokens.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := s.tokens.RevokeRefreshToken(ctx, claims.UserID); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    claims.UserID,
	})
	return nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record failed", "event", event.EventType, "error", err)
	}
}
