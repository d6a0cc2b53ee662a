package auth_test

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-core"
)

func TestStore_MigrateSeedsRoles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, role := range auth.DefaultRoles() {
		got, err := store.Users().RoleByID(ctx, role.ID)
		require.NoError(t, err)
		assert.Equal(t, role.Name, got.Name)
		assert.Equal(t, role.Level, got.Level)
	}

	_, err := store.Users().RoleByID(ctx, 42)
	assert.True(t, auth.IsKind(err, auth.KindValidation))

	// migrating an up to date schema is a no-op
	assert.NoError(t, store.Migrate(ctx))
}

func TestDialectFromDSN(t *testing.T) {
	assert.Equal(t, auth.DialectPostgres, auth.DialectFromDSN("postgres://u:p@localhost/db"))
	assert.Equal(t, auth.DialectPostgres, auth.DialectFromDSN("POSTGRESQL://localhost/db"))
	assert.Equal(t, auth.DialectSQLite, auth.DialectFromDSN("file:users.db?cache=shared"))
}

func TestUsers_CreateAndFind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := seedUser(t, store, "grace@example.com", "", auth.LevelAdmin)
	assert.NotZero(t, created.ID)
	assert.Equal(t, auth.LevelAdmin, created.PrivilegeLevel())
	assert.Equal(t, auth.RoleAdmin, created.RoleName())

	byEmail, err := store.Users().FindByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = store.Users().FindByEmail(ctx, "nobody@example.com")
	assert.True(t, auth.IsKind(err, auth.KindIdentityNotFound))

	_, err = store.Users().FindByID(ctx, created.ID+100)
	assert.True(t, auth.IsKind(err, auth.KindIdentityNotFound))
}

func TestUsers_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)

	seedUser(t, store, "dup@example.com", "", auth.LevelBase)

	_, err := store.Users().Create(context.Background(), &auth.User{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "dup@example.com",
		RoleID:    auth.LevelBase,
	})
	assert.True(t, auth.IsKind(err, auth.KindConflict))
}

func TestUsers_SoftDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := store.Users()

	user := seedUser(t, store, "gone@example.com", "", auth.LevelBase)

	deleted, err := users.SoftDelete(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, deleted.Email)

	_, err = users.FindByEmail(ctx, user.Email)
	assert.True(t, auth.IsKind(err, auth.KindIdentityNotFound))

	_, err = users.FindByID(ctx, user.ID)
	assert.True(t, auth.IsKind(err, auth.KindIdentityNotFound))

	_, err = users.SoftDelete(ctx, user.ID)
	assert.True(t, auth.IsKind(err, auth.KindIdentityNotFound))

	err = users.UpdateRefreshToken(ctx, user.ID, "token")
	assert.True(t, auth.IsKind(err, auth.KindIdentityNotFound))

	total, err := users.Count(ctx, auth.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	// the email stays reserved by the deleted row
	_, err = users.Create(ctx, &auth.User{FirstName: "New", LastName: "User", Email: user.Email, RoleID: auth.LevelBase})
	assert.True(t, auth.IsKind(err, auth.KindConflict))
}

func TestUsers_UpdateRefreshToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := store.Users()

	user := seedUser(t, store, "token@example.com", "", auth.LevelBase)

	require.NoError(t, users.UpdateRefreshToken(ctx, user.ID, "abc"))
	got, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.RefreshToken)

	require.NoError(t, users.UpdateRefreshToken(ctx, user.ID, ""))
	got, err = users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RefreshToken)
}

func TestUsers_Update(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := store.Users()

	user := seedUser(t, store, "patch@example.com", "", auth.LevelBase)
	seedUser(t, store, "taken@example.com", "", auth.LevelBase)

	first := "Patched"
	role := int64(auth.LevelPower)
	updated, err := users.Update(ctx, user.ID, auth.UserPatch{FirstName: &first, RoleID: &role})
	require.NoError(t, err)
	assert.Equal(t, "Patched", updated.FirstName)
	assert.Equal(t, "User", updated.LastName)
	assert.Equal(t, auth.LevelPower, updated.PrivilegeLevel())

	taken := "taken@example.com"
	_, err = users.Update(ctx, user.ID, auth.UserPatch{Email: &taken})
	assert.True(t, auth.IsKind(err, auth.KindConflict))

	_, err = users.Update(ctx, 9999, auth.UserPatch{FirstName: &first})
	assert.True(t, auth.IsKind(err, auth.KindIdentityNotFound))
}

func TestUsers_ListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := store.Users()

	a := seedUser(t, store, "alice@example.com", "", auth.LevelBase)
	b := seedUser(t, store, "bob@example.com", "", auth.LevelPower)
	c := seedUser(t, store, "carol@sample.org", "", auth.LevelAdmin)

	all, err := users.List(ctx, auth.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, ids(all))
	assert.Equal(t, auth.RoleBase, all[0].RoleName())

	byRole, err := users.List(ctx, auth.ListOptions{RoleIDs: []int64{auth.LevelPower, auth.LevelAdmin}})
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID}, ids(byRole))

	byID, err := users.List(ctx, auth.ListOptions{UserIDs: []int64{c.ID}})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids(byID))

	search, err := users.List(ctx, auth.ListOptions{Search: "example.com"})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, ids(search))

	sorted, err := users.List(ctx, auth.ListOptions{SortBy: "email", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, b.ID, a.ID}, ids(sorted))

	page, err := users.List(ctx, auth.ListOptions{Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids(page))

	total, err := users.Count(ctx, auth.ListOptions{Search: "example.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func ids(users []*auth.User) []int64 {
	out := make([]int64, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestStore_RunInTx(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Validate())

	seeded := seedUser(t, store, "tx@example.com", "s3cret-pass", auth.LevelBase)
	users := store.Users()

	err := store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := users.FindByEmailTx(ctx, tx, "tx@example.com")
		if err != nil {
			return err
		}
		return users.UpdateRefreshTokenTx(ctx, tx, user.ID, "committed")
	})
	require.NoError(t, err)

	rollback := errors.New("rollback")
	err = store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := users.UpdateRefreshTokenTx(ctx, tx, seeded.ID, "discarded"); err != nil {
			return err
		}
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	got, err := users.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "committed", got.RefreshToken)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = store.RunInTx(cancelled, nil, func(context.Context, bun.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_SetupErrorsAreInternal(t *testing.T) {
	_, err := auth.OpenStore(context.Background(), "")
	require.Error(t, err)
	assert.True(t, goerrors.IsInternal(err))

	store := auth.NewStore(nil, auth.DialectSQLite)
	assert.True(t, goerrors.IsInternal(store.Validate()))
	assert.Panics(t, store.MustValidate)
}
