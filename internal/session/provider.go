// Package session holds the signed-in user for the lifetime of the process.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/logging"
)

// Identity resolves the current user. *api.Client implements it.
type Identity interface {
	Me(ctx context.Context) (*api.User, error)
}

// Provider is the process-wide session context. It is built once in main and
// passed by handle to whatever needs the user.
type Provider struct {
	identity Identity
	logger   *log.Logger

	once    sync.Once
	mu      sync.RWMutex
	user    *api.User
	loading bool
}

// NewProvider returns a provider that is loading until Init resolves.
func NewProvider(identity Identity, logger *log.Logger) *Provider {
	return &Provider{
		identity: identity,
		logger:   logging.OrDiscard(logger).WithPrefix(logging.PrefixSession),
		loading:  true,
	}
}

// Init fetches the current user. Only the first call does any work; later
// calls return immediately. Any failure leaves the user absent.
func (p *Provider) Init(ctx context.Context) {
	p.once.Do(func() {
		u, err := p.identity.Me(ctx)
		switch {
		case errors.Is(err, api.ErrUnauthenticated):
			p.logger.Info("no valid session")
			u = nil
		case err != nil:
			p.logger.Warn("identity fetch failed", "err", err)
			u = nil
		case u == nil:
			p.logger.Warn("identity response empty")
		default:
			p.logger.Info("session restored", "user", u.Username)
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		// A login that finished while Init was in flight wins.
		if p.loading {
			p.user = u
		}
		p.loading = false
	})
}

// User returns the current user, or nil.
func (p *Provider) User() *api.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user
}

// SetUser replaces the current user after an explicit login (u) or logout
// (nil). It also ends the loading state.
func (p *Provider) SetUser(u *api.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = u
	p.loading = false
}

// Loading reports whether the first identity fetch is still pending.
func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Authenticated reports whether a user is signed in.
func (p *Provider) Authenticated() bool {
	return p.User() != nil
}

// UserID returns the current user's id, or "".
func (p *Provider) UserID() string {
	if u := p.User(); u != nil {
		return u.UID
	}
	return ""
}
