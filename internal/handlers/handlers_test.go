package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drravalement/site/internal/api"
	"drravalement/site/internal/authz"
	"drravalement/site/internal/config"
	"drravalement/site/internal/gate"
	"drravalement/site/internal/metrics"
	"drravalement/site/internal/middleware"
	"drravalement/site/internal/models"
	"drravalement/site/internal/repository"
	"drravalement/site/internal/security"
	"drravalement/site/internal/service"
	"drravalement/site/internal/session"
	"drravalement/site/internal/web"
)

const testSecret = "handler-test-secret"

type memStore struct {
	mu       sync.Mutex
	users    map[string]models.User
	sessions map[string]models.Session
	quotes   map[string]models.Quote
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]models.User{},
		sessions: map[string]models.Session{},
		quotes:   map[string]models.Quote{},
	}
}

func (m *memStore) addUser(t *testing.T, id, email, password string, role models.UserRole, status models.UserStatus) {
	t.Helper()
	hash, err := security.HashPasswordWithParams(password, security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	require.NoError(t, err)
	m.users[id] = models.User{ID: id, Email: email, PasswordHash: hash, Role: role, Status: status}
}

// users

type userStore struct{ *memStore }

func (s userStore) Create(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s userStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s userStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s userStore) List(_ context.Context, _, _ int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s userStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s userStore) UpdateRole(_ context.Context, id string, role models.UserRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.Role = role
	s.users[id] = u
	return nil
}

func (s userStore) UpdateStatus(_ context.Context, id string, status models.UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.Status = status
	s.users[id] = u
	return nil
}

func (s userStore) TouchLastLogin(_ context.Context, _ string) error { return nil }

func (s userStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

// sessions

type sessionStore struct{ *memStore }

func (s sessionStore) Create(_ context.Context, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s sessionStore) FindByTokenHash(_ context.Context, hash []byte) (models.Session, models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if bytes.Equal(sess.TokenHash, hash) {
			return sess, s.users[sess.UserID], nil
		}
	}
	return models.Session{}, models.User{}, repository.ErrSessionNotFound
}

func (s sessionStore) Touch(_ context.Context, _ string) error { return nil }

func (s sessionStore) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s sessionStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s sessionStore) DeleteByTokenHash(_ context.Context, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if bytes.Equal(sess.TokenHash, hash) {
			delete(s.sessions, id)
			return nil
		}
	}
	return repository.ErrSessionNotFound
}

func (s sessionStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s sessionStore) DeleteExpired(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

// quotes

type quoteStore struct{ *memStore }

func (s quoteStore) Create(_ context.Context, q models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.ID] = q
	return nil
}

func (s quoteStore) GetByID(_ context.Context, id string) (models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return models.Quote{}, repository.ErrQuoteNotFound
	}
	return q, nil
}

func (s quoteStore) List(_ context.Context, _ models.QuoteStatus, _, _ int) ([]models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Quote
	for _, q := range s.quotes {
		out = append(out, q)
	}
	return out, nil
}

func (s quoteStore) UpdateStatus(_ context.Context, id string, status models.QuoteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.quotes[id]
	q.Status = status
	s.quotes[id] = q
	return nil
}

func (s quoteStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, id)
	return nil
}

func newTestServer(t *testing.T, store *memStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zerolog.Nop()
	cfg := &config.AppConfig{Environment: "test"}
	cfg.Security.TokenSecret = testSecret
	cfg.Security.SessionTTL = time.Hour

	users := userStore{store}
	sessions := sessionStore{store}
	m := metrics.New(prometheus.NewRegistry())
	authorizer := authz.New(authz.DefaultTable())
	resolver := session.NewResolver(sessions, testSecret, log)
	cookies := middleware.NewCookieStore("handler-test-cookie-secret-0123456789", false, 3600)

	h := HandlerSet{
		log:          log,
		cfg:          cfg,
		authService:  service.NewAuthService(users, sessions, nil, service.AuthConfig{TokenSecret: testSecret, SessionTTL: time.Hour}, log),
		userService:  service.NewUserService(users, sessions, log),
		quoteService: service.NewQuoteService(quoteStore{store}, nil, log),
		resolver:     resolver,
		guard:        middleware.NewGuard(resolver, gate.New(authorizer, ""), cookies, m, log),
		authorizer:   authorizer,
		cookies:      cookies,
		loginLimiter: middleware.NewIPRateLimiter(600, 100),
		quoteLimiter: middleware.NewIPRateLimiter(600, 100),
		metrics:      m,
	}

	engine := gin.New()
	engine.SetHTMLTemplate(web.Templates())
	h.Register(engine.Group("/api"))
	h.RegisterPages(engine)
	return engine
}

func doJSON(engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, engine *gin.Engine, email, password string) api.LoginResponse {
	t.Helper()
	w := doJSON(engine, http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp api.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["code"]
}

func TestLoginSessionLogoutFlow(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "u1", "admin@drravalement.fr", "correct horse", models.UserRoleAdmin, models.UserStatusActive)
	engine := newTestServer(t, store)

	resp := login(t, engine, "admin@drravalement.fr", "correct horse")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "admin", resp.User.Role)

	w := doJSON(engine, http.MethodGet, "/api/v1/auth/session", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sess api.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, "u1", sess.User.ID)
	assert.Equal(t, resp.Session.ID, sess.Session.ID)

	w = doJSON(engine, http.MethodPost, "/api/v1/auth/logout", resp.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(engine, http.MethodGet, "/api/v1/auth/session", resp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(engine, http.MethodPost, "/api/v1/auth/logout", resp.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdminLogoutIsPostOnly(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "u1", "admin@drravalement.fr", "correct horse", models.UserRoleAdmin, models.UserStatusActive)
	engine := newTestServer(t, store)
	resp := login(t, engine, "admin@drravalement.fr", "correct horse")

	w := doJSON(engine, http.MethodGet, "/admin/logout", resp.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(engine, http.MethodGet, "/api/v1/auth/session", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(engine, http.MethodPost, "/admin/logout", resp.Token, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))
	w = doJSON(engine, http.MethodGet, "/api/v1/auth/session", resp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuoteLimiterHasOwnBudget(t *testing.T) {
	loginLimiter, quoteLimiter := rateLimiters(config.SecurityConfig{
		LoginRatePerMinute: 20,
		LoginBurst:         5,
		QuoteRatePerMinute: 1,
		QuoteBurst:         2,
	})

	assert.True(t, quoteLimiter.Allow("203.0.113.7"))
	assert.True(t, quoteLimiter.Allow("203.0.113.7"))
	assert.False(t, quoteLimiter.Allow("203.0.113.7"))

	for i := 0; i < 5; i++ {
		assert.True(t, loginLimiter.Allow("203.0.113.7"))
	}
	assert.False(t, loginLimiter.Allow("203.0.113.7"))
}

func TestLoginFailures(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "u1", "a@drravalement.fr", "correct horse", models.UserRoleEditor, models.UserStatusActive)
	store.addUser(t, "u2", "off@drravalement.fr", "correct horse", models.UserRoleEditor, models.UserStatusInactive)
	engine := newTestServer(t, store)

	w := doJSON(engine, http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{Email: "a@drravalement.fr", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, w))

	w = doJSON(engine, http.MethodPost, "/api/v1/auth/login", "", api.LoginRequest{Email: "off@drravalement.fr", Password: "correct horse"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account_inactive", errorCode(t, w))

	w = doJSON(engine, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "a@drravalement.fr"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionWithoutTokenIsUnauthenticated(t *testing.T) {
	engine := newTestServer(t, newMemStore())

	w := doJSON(engine, http.MethodGet, "/api/v1/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", errorCode(t, w))
}

func TestMeIncludesPermissions(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "v1", "viewer@drravalement.fr", "correct horse", models.UserRoleViewer, models.UserStatusActive)
	engine := newTestServer(t, store)
	token := login(t, engine, "viewer@drravalement.fr", "correct horse").Token

	w := doJSON(engine, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		User api.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"analytics.read", "bookings.read", "cms.read", "config.read", "projects.read", "quotes.read"}, body.User.Permissions)
}

func TestAdminUsersRequiresPermission(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "a1", "admin@drravalement.fr", "correct horse", models.UserRoleAdmin, models.UserStatusActive)
	store.addUser(t, "e1", "editor@drravalement.fr", "correct horse", models.UserRoleEditor, models.UserStatusActive)
	engine := newTestServer(t, store)

	editor := login(t, engine, "editor@drravalement.fr", "correct horse").Token
	w := doJSON(engine, http.MethodGet, "/api/v1/admin/users", editor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := login(t, engine, "admin@drravalement.fr", "correct horse").Token
	w = doJSON(engine, http.MethodGet, "/api/v1/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list api.UserList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	w = doJSON(engine, http.MethodPatch, "/api/v1/admin/users/e1/status", admin, api.UpdateStatusRequest{Status: "inactive"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	// the editor's session was revoked with the status change
	w = doJSON(engine, http.MethodGet, "/api/v1/auth/me", editor, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(engine, http.MethodDelete, "/api/v1/admin/users/a1", admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestQuoteSubmissionAndReview(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "e1", "editor@drravalement.fr", "correct horse", models.UserRoleEditor, models.UserStatusActive)
	engine := newTestServer(t, store)

	w := doJSON(engine, http.MethodPost, "/api/v1/quotes", "", api.QuoteRequest{
		Name: "Jeanne Martin", Email: "jeanne@example.fr", Phone: "0612345678", Service: "ravalement", SurfaceM2: 80,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	editor := login(t, engine, "editor@drravalement.fr", "correct horse").Token
	w = doJSON(engine, http.MethodPatch, "/api/v1/admin/quotes/"+created.ID+"/status", editor, api.UpdateStatusRequest{Status: "accepted"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(engine, http.MethodPatch, "/api/v1/admin/quotes/"+created.ID+"/status", editor, api.UpdateStatusRequest{Status: "contacted"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(engine, http.MethodDelete, "/api/v1/admin/quotes/"+created.ID, editor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMediaWithoutStorageIsUnavailable(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "a1", "admin@drravalement.fr", "correct horse", models.UserRoleAdmin, models.UserStatusActive)
	engine := newTestServer(t, store)
	admin := login(t, engine, "admin@drravalement.fr", "correct horse").Token

	w := doJSON(engine, http.MethodGet, "/api/v1/admin/media", admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "service_unavailable", errorCode(t, w))
}

func TestAdminPagesLoginRedirectRoundTrip(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "e1", "editor@drravalement.fr", "correct horse", models.UserRoleEditor, models.UserStatusActive)
	engine := newTestServer(t, store)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/quotes", nil))
	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	assert.Equal(t, "/admin/login?next=%2Fadmin%2Fquotes", location)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="/admin/quotes"`)

	form := url.Values{"email": {"editor@drravalement.fr"}, "password": {"correct horse"}, "next": {"/admin/quotes"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/quotes", w.Header().Get("Location"))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	w = get("/admin/quotes")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-page="quotes"`)
	assert.NotContains(t, w.Body.String(), "/admin/users")

	w = get("/admin/users")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
}

func TestAdminLoginFormRejectsOffsiteNext(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "e1", "editor@drravalement.fr", "correct horse", models.UserRoleEditor, models.UserStatusActive)
	engine := newTestServer(t, store)

	form := url.Values{"email": {"editor@drravalement.fr"}, "password": {"correct horse"}, "next": {"//evil.example/admin"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin", w.Header().Get("Location"))
}

func TestAdminLoginFormWrongPassword(t *testing.T) {
	store := newMemStore()
	store.addUser(t, "e1", "editor@drravalement.fr", "correct horse", models.UserRoleEditor, models.UserStatusActive)
	engine := newTestServer(t, store)

	form := url.Values{"email": {"editor@drravalement.fr"}, "password": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Email ou mot de passe incorrect.")
}
