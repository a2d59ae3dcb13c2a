package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"drravalement/site/internal/ids"
	"drravalement/site/internal/models"
	"drravalement/site/internal/repository"
	"drravalement/site/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user inactive")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	TouchLastLogin(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByTokenHash(ctx context.Context, tokenHash []byte) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Throttle limits failed logins per key.
type Throttle interface {
	Allowed(ctx context.Context, key string) (bool, error)
	Fail(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

type AuthConfig struct {
	TokenSecret string
	SessionTTL  time.Duration
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	throttle Throttle
	cfg      AuthConfig
	log      zerolog.Logger
}

func NewAuthService(users UserStore, sessions SessionStore, throttle Throttle, cfg AuthConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		throttle: throttle,
		cfg:      cfg,
		log:      log,
	}
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

type AuthResult struct {
	Token   string
	User    models.User
	Session models.Session
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Login verifies credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allowed(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Msg("login throttle unavailable")
		}
		if !allowed {
			return AuthResult{}, ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.recordFailure(ctx, email)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		s.recordFailure(ctx, email)
		return AuthResult{}, ErrInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserInactive
	}

	result, err := s.openSession(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("update last login failed")
	} else {
		now := time.Now().UTC()
		result.User.LastLogin = &now
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, email); err != nil {
			s.log.Debug().Err(err).Msg("reset login throttle failed")
		}
	}

	s.log.Info().Str("user_id", user.ID).Str("session_id", result.Session.ID).Msg("user logged in")
	return result, nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Fail(ctx, email); err != nil {
		s.log.Debug().Err(err).Msg("record login failure failed")
	}
}

func (s *AuthService) openSession(ctx context.Context, user models.User, ip, userAgent string) (AuthResult, error) {
	sessionID := ids.New()
	token, err := security.GenerateSessionToken(s.cfg.TokenSecret, user.ID, sessionID, s.cfg.SessionTTL)
	if err != nil {
		return AuthResult{}, err
	}

	now := time.Now().UTC()
	session := models.Session{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: security.HashToken(token),
		IPAddress: optional(ip),
		UserAgent: optional(userAgent),
		CreatedAt: now,
		LastUsed:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	return AuthResult{Token: token, User: user, Session: session}, nil
}

// Logout revokes the session designated by token. Unknown or already
// revoked tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.sessions.DeleteByTokenHash(ctx, security.HashToken(token))
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	return nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// RevokeSession ends one of the user's own sessions.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.ID == sessionID {
			return s.sessions.DeleteByID(ctx, sessionID)
		}
	}
	return repository.ErrSessionNotFound
}

// PurgeExpired deletes sessions that are no longer valid.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now())
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
