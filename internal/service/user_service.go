package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"drravalement/site/internal/ids"
	"drravalement/site/internal/models"
	"drravalement/site/internal/repository"
	"drravalement/site/internal/security"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrWeakPassword    = errors.New("password must be at least 10 characters")
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrSelfDemotion    = errors.New("cannot change own role or status")
	ErrSelfDeletion    = errors.New("cannot delete own account")
	ErrBootstrapConfig = errors.New("bootstrap admin email and password required")
)

const minPasswordLength = 10

type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     models.UserRole
}

type UserService struct {
	users    UserStore
	sessions SessionStore
	log      zerolog.Logger
}

func NewUserService(users UserStore, sessions SessionStore, log zerolog.Logger) *UserService {
	return &UserService{users: users, sessions: sessions, log: log}
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (models.User, error) {
	email := normalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return models.User{}, ErrInvalidEmail
	}
	if len(input.Password) < minPasswordLength {
		return models.User{}, ErrWeakPassword
	}
	role := input.Role
	if role == "" {
		role = models.UserRoleViewer
	}
	if !role.Valid() {
		return models.User{}, ErrInvalidRole
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         optional(strings.TrimSpace(input.Name)),
		Role:         role,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user created")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateRole changes the role of target. Permissions follow on the next
// request since they are derived from the role at check time.
func (s *UserService) UpdateRole(ctx context.Context, actorID, targetID string, role models.UserRole) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if actorID == targetID {
		return ErrSelfDemotion
	}
	if err := s.users.UpdateRole(ctx, targetID, role); err != nil {
		return err
	}
	s.log.Info().Str("actor_id", actorID).Str("user_id", targetID).Str("role", string(role)).Msg("user role updated")
	return nil
}

// UpdateStatus changes the status of target and revokes its sessions when
// it is no longer active.
func (s *UserService) UpdateStatus(ctx context.Context, actorID, targetID string, status models.UserStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if actorID == targetID {
		return ErrSelfDemotion
	}
	if err := s.users.UpdateStatus(ctx, targetID, status); err != nil {
		return err
	}
	if status != models.UserStatusActive {
		if err := s.sessions.DeleteByUser(ctx, targetID); err != nil {
			s.log.Warn().Err(err).Str("user_id", targetID).Msg("revoke sessions failed")
		}
	}
	s.log.Info().Str("actor_id", actorID).Str("user_id", targetID).Str("status", string(status)).Msg("user status updated")
	return nil
}

func (s *UserService) Delete(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfDeletion
	}
	if err := s.sessions.DeleteByUser(ctx, targetID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		return err
	}
	s.log.Info().Str("actor_id", actorID).Str("user_id", targetID).Msg("user deleted")
	return nil
}

// Bootstrap creates the first administrator when no user exists yet.
func (s *UserService) Bootstrap(ctx context.Context, email, password, name string) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if email == "" || password == "" {
		return false, ErrBootstrapConfig
	}
	_, err = s.Create(ctx, CreateUserInput{
		Email:    email,
		Password: password,
		Name:     name,
		Role:     models.UserRoleAdmin,
	})
	if errors.Is(err, repository.ErrEmailTaken) {
		return false, nil
	}
	return err == nil, err
}

var (
	_ UserStore    = (*repository.UserRepository)(nil)
	_ SessionStore = (*repository.SessionRepository)(nil)
)
