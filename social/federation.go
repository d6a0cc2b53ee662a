package social

import (
	"context"
	"sort"
	"sync"

	auth "github.com/goliatone/go-auth-core"
)

// Federation resolves third party logins to local identities. It never
// creates identities, an unknown email ends the flow with IdentityNotFound.
type Federation struct {
	mu        sync.RWMutex
	providers map[string]Provider
	store     auth.IdentityStore
	logger    auth.Logger
}

// NewFederation creates a federation adapter over store.
func NewFederation(store auth.IdentityStore, providers ...Provider) *Federation {
	f := &Federation{
		providers: map[string]Provider{},
		store:     store,
		logger:    auth.NopLogger{},
	}
	for _, p := range providers {
		f.Register(p)
	}
	return f
}

func (f *Federation) WithLogger(logger auth.Logger) *Federation {
	if logger != nil {
		f.logger = logger
	}
	return f
}

// Register adds p, replacing any provider with the same name.
func (f *Federation) Register(p Provider) {
	if p == nil {
		return
	}
	f.mu.Lock()
	f.providers[p.Name()] = p
	f.mu.Unlock()
}

// Provider returns the provider registered under name.
func (f *Federation) Provider(name string) (Provider, error) {
	f.mu.RLock()
	p, ok := f.providers[name]
	f.mu.RUnlock()
	if !ok {
		return nil, ErrProviderNotFound.Clone().WithMetadata(map[string]any{"provider": name})
	}
	return p, nil
}

// Names lists the registered providers in lexical order.
func (f *Federation) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.providers))
	for name := range f.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Begin returns the consent URL of provider for state.
func (f *Federation) Begin(provider, state string) (string, error) {
	p, err := f.Provider(provider)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state), nil
}

// Complete exchanges code, fetches the profile and finds the local identity
// by its lookup email.
func (f *Federation) Complete(ctx context.Context, provider, code string) (*auth.User, *Profile, error) {
	p, err := f.Provider(provider)
	if err != nil {
		return nil, nil, err
	}

	if code == "" {
		return nil, nil, ErrMissingCode
	}

	token, err := p.Exchange(ctx, code)
	if err != nil {
		f.logger.Warn("provider token exchange failed", "provider", provider, "error", err)
		return nil, nil, exchangeFailed(provider, err)
	}
	if token == nil || (token.AccessToken == "" && token.IDToken == "") {
		return nil, nil, exchangeFailed(provider, nil)
	}

	profile, err := p.Profile(ctx, token)
	if err != nil {
		f.logger.Warn("provider profile fetch failed", "provider", provider, "error", err)
		return nil, nil, profileFailed(provider, err)
	}
	if profile == nil {
		return nil, nil, profileFailed(provider, nil)
	}

	profile.Provider = provider
	if !profile.HasEmail() && profile.Subject == "" {
		return nil, nil, StageProfile.annotate(ErrMissingSubject, provider, nil)
	}

	email := profile.LookupEmail()
	user, err := f.store.FindByEmail(ctx, email)
	if err != nil {
		f.logger.Info("federated identity not registered", "provider", provider, "email", email)
		return nil, profile, err
	}

	return user, profile, nil
}
