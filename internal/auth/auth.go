// Package auth owns the client's authentication state: who is signed in, with which token, and whether the
// initial session restore has finished.
//
// A [Provider] is created once at startup and scoped to the application's root context with [WithProvider].
// Views and commands reach it through [FromContext] or [Use]; [Use] panics when no provider is present because
// that is a wiring mistake, never a runtime condition.
//
// State transitions:
//
//	{Loading: true} --Init--> {Loading: false, User/Token restored or nil}
//	any --Login ok--> {User, Token} from the login response
//	any --Logout--> {User: nil, Token: ""}
//
// Only [Provider.Init] ends loading. Login, Logout and Register never touch it.
package auth

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tdx/internal/models"
	"github.com/desertthunder/tdx/internal/services"
	"github.com/desertthunder/tdx/internal/session"
)

// Client is the subset of [services.TaskService] the provider calls.
type Client interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)
	Verify(ctx context.Context, token string) (*services.VerifyResult, error)
}

// State is a snapshot of the provider.
type State struct {
	User    *models.User
	Token   string
	Loading bool
}

// Authenticated reports whether initial loading is over and a user is present.
func (s State) Authenticated() bool {
	return !s.Loading && s.User != nil
}

// Provider holds authentication state and the operations that change it. It is safe for concurrent use.
type Provider struct {
	store  *session.Store
	client Client
	logger *log.Logger

	once sync.Once

	mu    sync.RWMutex
	state State
	subs  []chan State
}

// NewProvider returns a provider in the loading state. Call [Provider.Init] to restore any stored session.
func NewProvider(store *session.Store, client Client, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Provider{
		store:  store,
		client: client,
		logger: logger,
		state:  State{Loading: true},
	}
}

// Init restores the session from the store. Only the first call has any effect.
//
// The stored token is decoded locally and trusted without asking the server.
func (p *Provider) Init() {
	p.once.Do(func() {
		var (
			user  *models.User
			token string
		)

		if p.store.IsAuthenticated() {
			if claims := p.store.GetUserInfo(); claims != nil {
				if user = claims.User(); user != nil {
					token, _ = p.store.Token()
				}
			}
		}

		p.update(func(s *State) {
			s.User = user
			s.Token = token
			s.Loading = false
		})

		if user != nil {
			p.logger.Debug("restored session", "user", user.Email)
		} else {
			p.logger.Debug("no session to restore")
		}
	})
}

// Login authenticates against the service and persists the returned token.
//
// On any failure the error is returned and state is left as it was.
func (p *Provider) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	resp, err := p.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := p.store.SetAuthToken(resp.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	user := resp.User
	p.update(func(s *State) {
		s.Token = resp.AccessToken
		s.User = &user
	})

	p.logger.Info("logged in", "user", user.Email)
	return resp, nil
}

// Logout clears the stored token and in-memory identity. It makes no network call and may be called repeatedly.
func (p *Provider) Logout() {
	if err := p.store.RemoveAuthToken(); err != nil {
		p.logger.Warn("failed to remove stored session", "error", err)
	}

	p.update(func(s *State) {
		s.Token = ""
		s.User = nil
	})
}

// Register creates an account. It does not sign the user in.
func (p *Provider) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	return p.client.Register(ctx, req)
}

// VerifyToken asks the service whether the stored token is still accepted.
//
// It returns false without a network call when nothing is stored, and false on any failure.
func (p *Provider) VerifyToken(ctx context.Context) bool {
	token, ok := p.store.Token()
	if !ok {
		return false
	}

	if _, err := p.client.Verify(ctx, token); err != nil {
		p.logger.Debug("token verification failed", "error", err)
		return false
	}
	return true
}

// State returns a copy of the current state.
func (p *Provider) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot()
}

// Token returns the in-memory token, reporting false when signed out.
func (p *Provider) Token() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Token, p.state.Token != ""
}

// Subscribe returns a channel that receives the latest state after every change.
//
// The channel holds one value; a slow reader sees only the most recent state.
// Subscribing after Init has finished primes the channel with the current state.
func (p *Provider) Subscribe() <-chan State {
	ch := make(chan State, 1)
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subs = append(p.subs, ch)
	if !p.state.Loading {
		ch <- p.snapshot()
	}
	return ch
}

func (p *Provider) snapshot() State {
	s := p.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (p *Provider) update(fn func(*State)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn(&p.state)
	next := p.snapshot()

	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}
