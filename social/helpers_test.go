package social

import (
	"context"
	"errors"
	"sync"

	auth "github.com/goliatone/go-auth-core"
)

type fakeProvider struct {
	name       string
	token      *Token
	tokenErr   error
	profile    *Profile
	profileErr error
	codes      []string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://" + p.name + ".test/authorize?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*Token, error) {
	p.codes = append(p.codes, code)
	return p.token, p.tokenErr
}

func (p *fakeProvider) Profile(_ context.Context, _ *Token) (*Profile, error) {
	if p.profile == nil {
		return nil, p.profileErr
	}
	clone := *p.profile
	return &clone, p.profileErr
}

func okProvider(name string, profile *Profile) *fakeProvider {
	return &fakeProvider{
		name:    name,
		token:   &Token{AccessToken: "provider-token", TokenType: "bearer"},
		profile: profile,
	}
}

type userStore struct {
	mu    sync.Mutex
	users map[string]*auth.User
	// lookups records every email searched
	lookups []string
}

func newUserStore(users ...*auth.User) *userStore {
	s := &userStore{users: map[string]*auth.User{}}
	for _, u := range users {
		s.users[u.Email] = u
	}
	return s
}

func (s *userStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, email)
	if u, ok := s.users[email]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, auth.ErrIdentityNotFound
}

func (s *userStore) FindByID(_ context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrIdentityNotFound
}

func (s *userStore) UpdateRefreshToken(_ context.Context, id int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			u.RefreshToken = token
			return nil
		}
	}
	return auth.ErrIdentityNotFound
}

func (s *userStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func member(id int64, email string) *auth.User {
	return &auth.User{
		ID:        id,
		FirstName: "Fed",
		LastName:  "Member",
		Email:     email,
		RoleID:    auth.LevelBase,
		Role:      &auth.Role{ID: auth.LevelBase, Name: auth.RoleBase, Level: auth.LevelBase},
	}
}

var errUpstream = errors.New("upstream unavailable")
