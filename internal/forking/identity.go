package forking

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// LoginResolver returns the login name of the authenticated user.
type LoginResolver interface {
	AuthenticatedLogin(ctx context.Context) (string, error)
}

// Identity caches the login of the authenticated user.
// Failed lookups are not cached.
type Identity struct {
	resolver LoginResolver

	lock  sync.Mutex
	login string
}

func NewIdentity(resolver LoginResolver) *Identity {
	return &Identity{resolver: resolver}
}

// Login returns the login name of the authenticated user.
func (i *Identity) Login(ctx context.Context) (string, error) {
	i.lock.Lock()
	defer i.lock.Unlock()

	if i.login != "" {
		return i.login, nil
	}

	login, err := i.resolver.AuthenticatedLogin(ctx)
	if err != nil {
		return "", fmt.Errorf("retrieving authenticated github user failed: %w", err)
	}

	i.login = login

	return login, nil
}

// IsOwner returns true if the authenticated user is owner.
func (i *Identity) IsOwner(ctx context.Context, owner string) (bool, error) {
	login, err := i.Login(ctx)
	if err != nil {
		return false, err
	}

	return strings.EqualFold(login, owner), nil
}
