package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"drravalement/site/internal/models"
	"drravalement/site/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]models.User
	touch int
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{byID: map[string]models.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) List(_ context.Context, _, _ int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func (m *memUsers) update(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(&u)
	m.byID[id] = u
	return nil
}

func (m *memUsers) UpdateRole(_ context.Context, id string, role models.UserRole) error {
	return m.update(id, func(u *models.User) { u.Role = role })
}

func (m *memUsers) UpdateStatus(_ context.Context, id string, status models.UserStatus) error {
	return m.update(id, func(u *models.User) { u.Status = status })
}

func (m *memUsers) TouchLastLogin(_ context.Context, id string) error {
	m.touch++
	return m.update(id, func(u *models.User) {
		now := time.Now().UTC()
		u.LastLogin = &now
	})
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

type memSessions struct {
	mu   sync.Mutex
	rows []models.Session
}

func (m *memSessions) Create(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, session)
	return nil
}

func (m *memSessions) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSessions) filter(keep func(models.Session) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	removed := 0
	for _, s := range m.rows {
		if keep(s) {
			kept = append(kept, s)
		} else {
			removed++
		}
	}
	m.rows = kept
	return removed
}

func (m *memSessions) DeleteByID(_ context.Context, id string) error {
	if m.filter(func(s models.Session) bool { return s.ID != id }) == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (m *memSessions) DeleteByTokenHash(_ context.Context, hash []byte) error {
	if m.filter(func(s models.Session) bool { return string(s.TokenHash) != string(hash) }) == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID string) error {
	m.filter(func(s models.Session) bool { return s.UserID != userID })
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	return int64(m.filter(func(s models.Session) bool { return s.ExpiresAt.After(before) })), nil
}

type mockThrottle struct {
	mock.Mock
}

func (m *mockThrottle) Allowed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockThrottle) Fail(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockThrottle) Reset(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, jobType string, data any) error {
	return m.Called(ctx, jobType, data).Error(0)
}
