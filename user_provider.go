package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserProvider checks password credentials against the identity store.
type UserProvider struct {
	store  IdentityStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store IdentityStore) *UserProvider {
	_ = dummyHash()
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity finds the identity by email and compares the password. An
// unknown email and a wrong password produce the same error.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*User, error) {
	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if IsKind(err, KindIdentityNotFound) {
			// equalize timing with the known email path
			_ = ComparePasswordAndHash(password, dummyHash())
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		u.logger.Debug("password verification failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

var dummyHashes sync.Map

// dummyHash returns a hash of a random string at the current
// PasswordHashCost, so a miss costs as much as a real comparison. It never
// matches a real password.
func dummyHash() string {
	cost := PasswordHashCost
	if hash, ok := dummyHashes.Load(cost); ok {
		return hash.(string)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return ""
	}

	actual, _ := dummyHashes.LoadOrStore(cost, string(hash))
	return actual.(string)
}
