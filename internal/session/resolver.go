// Package session resolves bearer tokens into the (user, session) pair they
// grant, re-checking expiry against the store on every call.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"drravalement/site/internal/models"
	"drravalement/site/internal/repository"
	"drravalement/site/internal/security"
)

// Status is the observable state of a validation.
type Status int

const (
	StatusPending Status = iota
	StatusValid
	StatusInvalid
	StatusTransientError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	case StatusTransientError:
		return "transient_error"
	}
	return "unknown"
}

// Invalid reasons, used for logs and metrics.
const (
	ReasonNoToken   = "no_token"
	ReasonMalformed = "malformed"
	ReasonNotFound  = "not_found"
	ReasonExpired   = "expired"
	ReasonInactive  = "inactive"
)

type Result struct {
	Status  Status
	Reason  string
	User    *models.User
	Session *models.Session
	Err     error
}

func Valid(user models.User, sess models.Session) Result {
	return Result{Status: StatusValid, User: &user, Session: &sess}
}

func Invalid(reason string) Result {
	return Result{Status: StatusInvalid, Reason: reason}
}

func Transient(err error) Result {
	return Result{Status: StatusTransientError, Err: err}
}

// Store is the persistence the resolver consults.
type Store interface {
	FindByTokenHash(ctx context.Context, tokenHash []byte) (models.Session, models.User, error)
	Touch(ctx context.Context, sessionID string) error
	DeleteByID(ctx context.Context, id string) error
}

type Resolver struct {
	store  Store
	secret string
	now    func() time.Time
	log    zerolog.Logger
}

func NewResolver(store Store, secret string, log zerolog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		secret: secret,
		now:    time.Now,
		log:    log,
	}
}

// WithClock replaces the time source.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Validate never returns Pending. Store failures yield TransientError so
// that a flaky backend does not look like a logout.
func (r *Resolver) Validate(ctx context.Context, token string) Result {
	if token == "" {
		return Invalid(ReasonNoToken)
	}

	if _, err := security.VerifySessionToken(token, r.secret); err != nil {
		return Invalid(ReasonMalformed)
	}

	sess, user, err := r.store.FindByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return Invalid(ReasonNotFound)
		}
		r.log.Warn().Err(err).Msg("session lookup failed")
		return Transient(err)
	}

	if !sess.ValidAt(r.now()) {
		if err := r.store.DeleteByID(ctx, sess.ID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			r.log.Debug().Err(err).Str("session_id", sess.ID).Msg("drop expired session failed")
		}
		return Invalid(ReasonExpired)
	}

	if user.Status != models.UserStatusActive {
		return Invalid(ReasonInactive)
	}

	if err := r.store.Touch(ctx, sess.ID); err != nil {
		r.log.Debug().Err(err).Str("session_id", sess.ID).Msg("touch session failed")
	}

	return Valid(user, sess)
}
