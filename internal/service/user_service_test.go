package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drravalement/site/internal/models"
	"drravalement/site/internal/repository"
)

func TestCreateUserValidates(t *testing.T) {
	svc := NewUserService(newMemUsers(), &memSessions{}, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateUserInput{Email: "not-an-email", Password: "long enough pw"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Create(ctx, CreateUserInput{Email: "a@b.fr", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Create(ctx, CreateUserInput{Email: "a@b.fr", Password: "long enough pw", Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	user, err := svc.Create(ctx, CreateUserInput{Email: "A@B.fr", Password: "long enough pw"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.fr", user.Email)
	assert.Equal(t, models.UserRoleViewer, user.Role)
	assert.Equal(t, models.UserStatusActive, user.Status)

	_, err = svc.Create(ctx, CreateUserInput{Email: "a@b.fr", Password: "long enough pw"})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestUpdateStatusRevokesSessions(t *testing.T) {
	users := newMemUsers(
		models.User{ID: "admin", Role: models.UserRoleAdmin, Status: models.UserStatusActive},
		models.User{ID: "ed", Role: models.UserRoleEditor, Status: models.UserStatusActive},
	)
	sessions := &memSessions{rows: []models.Session{
		{ID: "s1", UserID: "ed", ExpiresAt: time.Now().Add(time.Hour)},
		{ID: "s2", UserID: "admin", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewUserService(users, sessions, zerolog.Nop())

	require.NoError(t, svc.UpdateStatus(context.Background(), "admin", "ed", models.UserStatusInactive))

	ed, _ := users.GetByID(context.Background(), "ed")
	assert.Equal(t, models.UserStatusInactive, ed.Status)
	require.Len(t, sessions.rows, 1)
	assert.Equal(t, "admin", sessions.rows[0].UserID)
}

func TestSelfChangesRefused(t *testing.T) {
	users := newMemUsers(models.User{ID: "admin", Role: models.UserRoleAdmin, Status: models.UserStatusActive})
	svc := NewUserService(users, &memSessions{}, zerolog.Nop())
	ctx := context.Background()

	assert.ErrorIs(t, svc.UpdateRole(ctx, "admin", "admin", models.UserRoleViewer), ErrSelfDemotion)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, "admin", "admin", models.UserStatusInactive), ErrSelfDemotion)
	assert.ErrorIs(t, svc.Delete(ctx, "admin", "admin"), ErrSelfDeletion)
	assert.ErrorIs(t, svc.UpdateRole(ctx, "admin", "x", "root"), ErrInvalidRole)
}

func TestDeleteUserRemovesSessions(t *testing.T) {
	users := newMemUsers(models.User{ID: "v", Role: models.UserRoleViewer})
	sessions := &memSessions{rows: []models.Session{{ID: "s1", UserID: "v"}}}
	svc := NewUserService(users, sessions, zerolog.Nop())

	require.NoError(t, svc.Delete(context.Background(), "admin", "v"))
	assert.Empty(t, sessions.rows)
	_, err := users.GetByID(context.Background(), "v")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestBootstrap(t *testing.T) {
	users := newMemUsers()
	svc := NewUserService(users, &memSessions{}, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "", "", "")
	assert.ErrorIs(t, err, ErrBootstrapConfig)

	created, err := svc.Bootstrap(ctx, "admin@drravalement.fr", "bootstrap-password", "Admin")
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := users.FindByEmail(ctx, "admin@drravalement.fr")
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleAdmin, admin.Role)

	created, err = svc.Bootstrap(ctx, "other@drravalement.fr", "bootstrap-password", "")
	require.NoError(t, err)
	assert.False(t, created)
}
