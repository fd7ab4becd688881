package handler_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/handler"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/middleware"
	"github.com/iliyamo/museum-booking/internal/model"
	"github.com/iliyamo/museum-booking/internal/repository"
	"github.com/iliyamo/museum-booking/internal/utils"
)

// fakeAccounts implements AccountStore and VisitorStore in memory.
type fakeAccounts struct {
	mu       sync.Mutex
	users    map[uint64]model.User
	visitors map[uint64]model.Visitor
	nextID   uint64
	failWith error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: map[uint64]model.User{}, visitors: map[uint64]model.Visitor{}}
}

func (f *fakeAccounts) add(t *testing.T, email, password, role string, active bool) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := model.User{ID: f.nextID, Email: email, PasswordHash: hash, Role: role, IsActive: active}
	f.users[u.ID] = u
	f.visitors[u.ID] = model.Visitor{ID: 500 + u.ID, UserID: u.ID, FirstName: "Test", Email: email}
	return u
}

func (f *fakeAccounts) CreateWithVisitor(_ context.Context, reg repository.Registration, cost int) (model.User, model.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return model.User{}, model.Visitor{}, f.failWith
	}
	email := strings.ToLower(reg.Email)
	for _, u := range f.users {
		if u.Email == email {
			return model.User{}, model.Visitor{}, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(reg.Password, cost)
	if err != nil {
		return model.User{}, model.Visitor{}, err
	}
	f.nextID++
	u := model.User{ID: f.nextID, Email: email, PasswordHash: hash, Role: reg.Role, IsActive: true}
	v := model.Visitor{ID: 500 + u.ID, UserID: u.ID, FirstName: reg.FirstName, LastName: reg.LastName, Email: email, Phone: reg.Phone}
	f.users[u.ID] = u
	f.visitors[u.ID] = v
	return u, v, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeAccounts) GetByUserID(_ context.Context, userID uint64) (model.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[userID]
	if !ok {
		return model.Visitor{}, repository.ErrNotFound
	}
	return v, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, userID uint64, upd repository.ProfileUpdate) (model.Visitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visitors[userID]
	if !ok {
		return model.Visitor{}, repository.ErrNotFound
	}
	u := f.users[userID]
	if upd.Email != nil {
		email := strings.ToLower(*upd.Email)
		for id, other := range f.users {
			if id != userID && other.Email == email {
				return model.Visitor{}, repository.ErrEmailExists
			}
		}
		u.Email, v.Email = email, email
	}
	if upd.FirstName != nil {
		v.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		v.LastName = *upd.LastName
	}
	if upd.Phone != nil {
		v.Phone = *upd.Phone
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	f.users[userID] = u
	f.visitors[userID] = v
	return v, nil
}

// fakeSessions implements SessionStore keyed by token hash.
type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]uint64
}

func newFakeSessions() *fakeSessions { return &fakeSessions{tokens: map[string]uint64{}} }

func (f *fakeSessions) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[hash] = userID
	return nil
}

func (f *fakeSessions) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (f *fakeSessions) Rotate(_ context.Context, userID uint64, oldHash, newHash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens[oldHash] != userID {
		return repository.ErrNotFound
	}
	delete(f.tokens, oldHash)
	f.tokens[newHash] = userID
	return nil
}

func (f *fakeSessions) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, hash)
	return nil
}

func (f *fakeSessions) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, id := range f.tokens {
		if id == userID {
			delete(f.tokens, h)
		}
	}
	return nil
}

func (f *fakeSessions) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

type authApp struct {
	e        *echo.Echo
	accounts *fakeAccounts
	sessions *fakeSessions
}

func newAuthApp(t *testing.T) *authApp {
	t.Helper()
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	a := &authApp{e: newEcho(), accounts: newFakeAccounts(), sessions: newFakeSessions()}
	h := handler.NewAuthHandler(cfg, a.accounts, a.sessions, a.accounts, logger.Nop())

	auth := a.e.Group("/v1/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout, middleware.OptionalJWTAuth(secret))
	me := a.e.Group("/v1/me", middleware.JWTAuth(secret))
	me.GET("", h.Me)
	me.PUT("", h.UpdateMe)
	return a
}

func tokenPair(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	access := body["access"].(map[string]any)["token"].(string)
	refresh := body["refresh"].(map[string]any)["token"].(string)
	return access, refresh
}

func TestRegister(t *testing.T) {
	a := newAuthApp(t)
	rec := do(t, a.e, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"first_name": "Grace", "last_name": "Hopper", "email": "Grace@Example.com", "password": "s3cretpass",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	assert.Equal(t, "visitor", user["role"])
	assert.Equal(t, "grace@example.com", user["email"])
	assert.Equal(t, "Grace", body["visitor"].(map[string]any)["first_name"])
	access, refresh := tokenPair(t, body)
	assert.NotEmpty(t, access)
	assert.Len(t, refresh, 96)
	assert.Equal(t, 1, a.sessions.live())

	rec = do(t, a.e, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"first_name": "G", "last_name": "H", "email": "grace@example.com", "password": "anotherpass",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_EXISTS", errorCode(t, rec))
}

func TestRegisterValidation(t *testing.T) {
	a := newAuthApp(t)
	rec := do(t, a.e, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"first_name": "G", "email": "not-an-email", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode(t, rec)["details"].(map[string]any)
	assert.Equal(t, "required", details["last_name"])
	assert.Equal(t, "email", details["email"])
	assert.Equal(t, "min=8", details["password"])
}

func TestRegisterStorageFailureIsOpaque(t *testing.T) {
	a := newAuthApp(t)
	a.accounts.failWith = errors.New("dial tcp 10.0.0.5:3306: connection refused")
	rec := do(t, a.e, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"first_name": "G", "last_name": "H", "email": "g@example.com", "password": "s3cretpass",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestLogin(t *testing.T) {
	a := newAuthApp(t)
	a.accounts.add(t, "ada@example.com", "correct-horse", model.RoleVisitor, true)
	a.accounts.add(t, "off@example.com", "correct-horse", model.RoleVisitor, false)

	rec := do(t, a.e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": " ADA@example.com ", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access, _ := tokenPair(t, decode(t, rec))

	rec = do(t, a.e, http.MethodGet, "/v1/me", "Bearer "+access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, false, me["is_admin"])
	assert.Equal(t, "ada@example.com", me["visitor"].(map[string]any)["email"])

	cases := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"wrong password", map[string]any{"email": "ada@example.com", "password": "nope"}, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"unknown email", map[string]any{"email": "who@example.com", "password": "correct-horse"}, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"disabled", map[string]any{"email": "off@example.com", "password": "correct-horse"}, http.StatusForbidden, "ACCOUNT_DISABLED"},
		{"missing password", map[string]any{"email": "ada@example.com"}, http.StatusBadRequest, "VALIDATION_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, a.e, http.MethodPost, "/v1/auth/login", "", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	a := newAuthApp(t)
	a.accounts.add(t, "ada@example.com", "correct-horse", model.RoleAdmin, true)
	rec := do(t, a.e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "ada@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	_, refresh := tokenPair(t, decode(t, rec))

	rec = do(t, a.e, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	_, next := tokenPair(t, body)
	assert.NotEqual(t, refresh, next)
	assert.Equal(t, "admin", body["user"].(map[string]any)["role"])
	assert.Equal(t, 1, a.sessions.live())

	rec = do(t, a.e, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_REFRESH", errorCode(t, rec))

	rec = do(t, a.e, http.MethodPost, "/v1/auth/refresh", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout(t *testing.T) {
	a := newAuthApp(t)
	u := a.accounts.add(t, "ada@example.com", "correct-horse", model.RoleVisitor, true)
	login := func() (string, string) {
		rec := do(t, a.e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "ada@example.com", "password": "correct-horse"})
		require.Equal(t, http.StatusOK, rec.Code)
		return tokenPair(t, decode(t, rec))
	}

	_, refresh := login()
	rec := do(t, a.e, http.MethodPost, "/v1/auth/logout", "", map[string]any{"refresh_token": refresh})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, a.sessions.live())

	login()
	access, _ := login()
	require.Equal(t, 2, a.sessions.live())
	rec = do(t, a.e, http.MethodPost, "/v1/auth/logout", "Bearer "+access, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, a.sessions.live())

	_, refresh = login()
	other := bearer(t, u.ID+1, model.RoleVisitor)
	rec = do(t, a.e, http.MethodPost, "/v1/auth/logout", other, map[string]any{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, a.sessions.live())

	rec = do(t, a.e, http.MethodPost, "/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMe(t *testing.T) {
	a := newAuthApp(t)
	u := a.accounts.add(t, "ada@example.com", "correct-horse", model.RoleVisitor, true)
	a.accounts.add(t, "taken@example.com", "whatever-pass", model.RoleVisitor, true)
	auth := bearer(t, u.ID, model.RoleVisitor)

	rec := do(t, a.e, http.MethodPut, "/v1/me", auth, map[string]any{"first_name": "Augusta", "phone_number": "+44 20 7946 0000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Augusta", decode(t, rec)["visitor"].(map[string]any)["first_name"])

	rec = do(t, a.e, http.MethodPut, "/v1/me", auth, map[string]any{"email": "lovelace@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PASSWORD", errorCode(t, rec))

	rec = do(t, a.e, http.MethodPut, "/v1/me", auth, map[string]any{"email": "taken@example.com", "current_password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, a.e, http.MethodPut, "/v1/me", auth, map[string]any{
		"email": "lovelace@example.com", "current_password": "correct-horse", "new_password": "analytical-engine",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "lovelace@example.com", decode(t, rec)["user"].(map[string]any)["email"])

	rec = do(t, a.e, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "lovelace@example.com", "password": "analytical-engine"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMeRequiresToken(t *testing.T) {
	a := newAuthApp(t)
	rec := do(t, a.e, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, rec))

	rec = do(t, a.e, http.MethodGet, "/v1/me", bearer(t, 42, model.RoleVisitor), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
