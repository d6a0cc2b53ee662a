package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-core"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recordedEvents) sink() auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, event)
		return nil
	})
}

func (r *recordedEvents) types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

func (r *recordedEvents) last() auth.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newAuther(t *testing.T) (*auth.Auther, *memoryStore, *recordedEvents) {
	t.Helper()

	hash, err := auth.HashPassword("s3cret-pass")
	require.NoError(t, err)

	user := powerUser()
	user.PasswordHash = hash
	store := newMemoryStore(user)

	events := &recordedEvents{}
	auther := auth.NewAuthenticator(store, newTokenService(t, store)).
		WithLogger(auth.NopLogger{}).
		WithActivitySink(events.sink())

	return auther, store, events
}

func TestAuther_Login(t *testing.T) {
	auther, store, events := newAuther(t)
	ctx := context.Background()

	pair, err := auther.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, pair.RefreshToken, store.stored("ada@example.com"))

	claims, err := auther.TokenService().VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.LevelPower, claims.PrivilegeLevel)

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLoginSuccess}, events.types())
	assert.False(t, events.last().OccurredAt.IsZero())
}

func TestAuther_LoginFailure(t *testing.T) {
	auther, store, events := newAuther(t)

	_, err := auther.Login(context.Background(), "ada@example.com", "wrong")
	assert.True(t, auth.IsKind(err, auth.KindInvalidCredentials))
	assert.Empty(t, store.stored("ada@example.com"))

	event := events.last()
	assert.Equal(t, auth.ActivityEventLoginFailure, event.EventType)
	assert.Equal(t, auth.KindInvalidCredentials, event.Kind)
	assert.Equal(t, "ada@example.com", event.Metadata["identifier"])
}

func TestAuther_RefreshKeepsRefreshToken(t *testing.T) {
	auther, store, events := newAuther(t)
	ctx := context.Background()

	pair, err := auther.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)

	access, err := auther.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.Equal(t, pair.RefreshToken, store.stored("ada@example.com"))

	// the same refresh token keeps working
	_, err = auther.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, auth.ActivityEventTokenRefreshed, events.last().EventType)
}

func TestAuther_RefreshReflectsStoredRole(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := store.Users()

	admin := seedUser(t, store, "root@example.com", "s3cret-pass", auth.LevelAdmin)
	tokens := newTokenService(t, users)
	auther := auth.NewAuthenticator(users, tokens).WithLogger(auth.NopLogger{})

	pair, err := auther.Login(ctx, "root@example.com", "s3cret-pass")
	require.NoError(t, err)

	before, err := tokens.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.LevelAdmin, before.PrivilegeLevel)

	demoted := int64(auth.LevelBase)
	_, err = users.Update(ctx, admin.ID, auth.UserPatch{RoleID: &demoted})
	require.NoError(t, err)

	access, err := auther.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	after, err := tokens.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, auth.LevelBase, after.PrivilegeLevel)
	assert.Equal(t, auth.RoleBase, after.RoleName)
	assert.Equal(t, admin.ID, after.UserID)
}

func TestAuther_RefreshAfterNewLogin(t *testing.T) {
	auther, _, events := newAuther(t)
	ctx := context.Background()

	first, err := auther.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	_, err = auther.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, err = auther.Refresh(ctx, first.RefreshToken)
	assert.True(t, auth.IsKind(err, auth.KindRefreshTokenMismatch))

	event := events.last()
	assert.Equal(t, auth.ActivityEventRefreshFailure, event.EventType)
	assert.Equal(t, auth.KindRefreshTokenMismatch, event.Kind)
}

func TestAuther_RefreshMissing(t *testing.T) {
	auther, _, _ := newAuther(t)

	_, err := auther.Refresh(context.Background(), "")
	assert.True(t, auth.IsKind(err, auth.KindMissingCredential))
}

func TestAuther_Logout(t *testing.T) {
	auther, store, events := newAuther(t)
	ctx := context.Background()

	pair, err := auther.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, auther.Logout(ctx, pair.RefreshToken))
	assert.Empty(t, store.stored("ada@example.com"))
	assert.Equal(t, auth.ActivityEventLogout, events.last().EventType)

	_, err = auther.Refresh(ctx, pair.RefreshToken)
	assert.True(t, auth.IsKind(err, auth.KindRefreshTokenMismatch))

	// a revoked token cannot log out again
	err = auther.Logout(ctx, pair.RefreshToken)
	assert.True(t, auth.IsKind(err, auth.KindRefreshTokenMismatch))

	assert.True(t, auth.IsKind(auther.Logout(ctx, ""), auth.KindMissingCredential))
}

func TestAuther_FederatedLogin(t *testing.T) {
	auther, store, events := newAuther(t)
	ctx := context.Background()

	user, err := store.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)

	pair, err := auther.FederatedLogin(ctx, "github", user)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, store.stored("ada@example.com"))

	event := events.last()
	assert.Equal(t, auth.ActivityEventSocialLogin, event.EventType)
	assert.Equal(t, "github", event.Provider)
	assert.Equal(t, user.ID, event.UserID)

	_, err = auther.FederatedLogin(ctx, "github", nil)
	assert.True(t, auth.IsKind(err, auth.KindIdentityNotFound))

	auther.FederationFailed(ctx, "google", auth.NewError(auth.KindTokenExchangeFailed, "exchange"))
	event = events.last()
	assert.Equal(t, auth.ActivityEventSocialFailure, event.EventType)
	assert.Equal(t, auth.KindTokenExchangeFailed, event.Kind)
}

func TestAuther_SinkErrorsDoNotFailFlows(t *testing.T) {
	auther, _, _ := newAuther(t)
	auther.WithActivitySink(auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		return errors.New("sink down")
	}))

	_, err := auther.Login(context.Background(), "ada@example.com", "s3cret-pass")
	assert.NoError(t, err)
}

func TestActivitySinks_FanOut(t *testing.T) {
	a, b := &recordedEvents{}, &recordedEvents{}
	failing := auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		return errors.New("first")
	})

	sinks := auth.ActivitySinks{a.sink(), nil, failing, b.sink()}
	err := sinks.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout})

	assert.EqualError(t, err, "first")
	assert.Len(t, a.types(), 1)
	assert.Len(t, b.types(), 1)
}
