// Package authctx owns the current actor of a client process: the bearer
// token, the user it belongs to and the session it designates. Only Restore,
// Refresh, Login and Logout mutate it; everything else reads snapshots or
// subscribes to changes.
package authctx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"drravalement/site/internal/models"
	"drravalement/site/internal/session"
)

// State is an immutable snapshot of the authentication context.
type State struct {
	Status  session.Status
	User    *models.User
	Session *models.Session
	// Err is set when Status is StatusTransientError.
	Err error
}

func (s State) Authenticated() bool {
	return s.Status == session.StatusValid && s.User != nil
}

type Identity struct {
	User    models.User
	Session models.Session
	Token   string
}

type Credentials struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// Backend is the remote platform holding users and sessions.
//
// ValidateSession returns (nil, nil) for a missing, expired or unknown token
// and an error only when the platform could not answer.
type Backend interface {
	ValidateSession(ctx context.Context, token string) (*Identity, error)
	Authenticate(ctx context.Context, creds Credentials) (Identity, error)
	Logout(ctx context.Context, token string) error
}

// ErrLoginDiscarded is returned by Login when a Logout ran while the
// authentication was in flight. The new session has been revoked.
var ErrLoginDiscarded = errors.New("login discarded: signed out while logging in")

// CredentialError reports rejected credentials; Message is user-facing.
type CredentialError struct {
	Message string
}

func (e *CredentialError) Error() string {
	return e.Message
}

// TransientError wraps a failure to reach the backend.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("backend unavailable: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

type Context struct {
	backend Backend
	tokens  TokenStore
	log     zerolog.Logger

	mu         sync.Mutex
	state      State
	token      string
	generation uint64
	logouts    uint64

	// publishMu orders deliveries; it is taken before mu is released so
	// subscribers observe states in mutation order.
	publishMu sync.Mutex

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

func New(backend Backend, tokens TokenStore, log zerolog.Logger) *Context {
	return &Context{
		backend: backend,
		tokens:  tokens,
		log:     log,
		subs:    make(map[int]func(State)),
	}
}

func (c *Context) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Token returns the bearer token currently held, or "".
func (c *Context) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Subscribe registers fn and immediately delivers the current state.
// Callbacks run sequentially and must not call Login, Logout, Restore or
// Refresh.
func (c *Context) Subscribe(fn func(State)) func() {
	// Same lock order as commit: mu, then publishMu.
	c.mu.Lock()
	st := c.state
	c.publishMu.Lock()
	c.mu.Unlock()
	defer c.publishMu.Unlock()

	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	fn(st)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// commit must be called with c.mu held; it releases c.mu.
func (c *Context) commit(st State) {
	c.state = st
	c.publishMu.Lock()
	c.mu.Unlock()
	defer c.publishMu.Unlock()

	c.subMu.Lock()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// Restore loads the persisted token and validates it. Without a stored
// token it resolves to Invalid without contacting the backend.
func (c *Context) Restore(ctx context.Context) State {
	token, err := c.tokens.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("read stored session token failed")
		token = ""
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Refresh re-validates the token currently held. A result that arrives after
// the token was replaced or cleared is discarded.
func (c *Context) Refresh(ctx context.Context) State {
	c.mu.Lock()
	token := c.token
	if token == "" {
		c.generation++
		c.commit(State{Status: session.StatusInvalid})
		return c.Snapshot()
	}
	c.generation++
	gen := c.generation
	c.commit(State{Status: session.StatusPending})

	ident, err := c.backend.ValidateSession(ctx, token)

	c.mu.Lock()
	if c.generation != gen || c.token != token {
		st := c.state
		c.mu.Unlock()
		c.log.Debug().Msg("discarding stale session validation")
		return st
	}

	switch {
	case err != nil:
		c.commit(State{Status: session.StatusTransientError, Err: err})
	case ident == nil:
		c.token = ""
		if err := c.tokens.Clear(); err != nil {
			c.log.Warn().Err(err).Msg("clear stored session token failed")
		}
		c.commit(State{Status: session.StatusInvalid})
	default:
		user, sess := ident.User, ident.Session
		c.commit(State{Status: session.StatusValid, User: &user, Session: &sess})
	}
	return c.Snapshot()
}

// Login authenticates and, on success, replaces the current actor. On
// failure the current state is left untouched and the error is a
// *CredentialError, a *TransientError or ErrLoginDiscarded. Concurrent
// logins are last writer wins; a Logout issued while a login is in flight
// discards its result.
func (c *Context) Login(ctx context.Context, creds Credentials) (State, error) {
	c.mu.Lock()
	logouts := c.logouts
	c.mu.Unlock()

	ident, err := c.backend.Authenticate(ctx, creds)
	if err != nil {
		var credErr *CredentialError
		var transient *TransientError
		if !errors.As(err, &credErr) && !errors.As(err, &transient) {
			err = &TransientError{Err: err}
		}
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if c.logouts != logouts {
		c.mu.Unlock()
		c.revoke(ctx, ident.Token)
		return c.Snapshot(), ErrLoginDiscarded
	}
	c.generation++
	c.token = ident.Token
	if err := c.tokens.Save(ident.Token); err != nil {
		c.log.Warn().Err(err).Msg("persist session token failed")
	}
	user, sess := ident.User, ident.Session
	c.commit(State{Status: session.StatusValid, User: &user, Session: &sess})
	return c.Snapshot(), nil
}

// Logout clears local state first, then revokes the session remotely on a
// best-effort basis. It never fails and is idempotent.
func (c *Context) Logout(ctx context.Context) {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.generation++
	c.logouts++
	if err := c.tokens.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("clear stored session token failed")
	}
	c.commit(State{Status: session.StatusInvalid})

	if token != "" {
		c.revoke(ctx, token)
	}
}

func (c *Context) revoke(ctx context.Context, token string) {
	if err := c.backend.Logout(ctx, token); err != nil {
		c.log.Warn().Err(err).Msg("remote logout failed, local session cleared")
	}
}
