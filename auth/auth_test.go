package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/middleware"
	"wanderlust/models"
	"wanderlust/query/querytest"
	"wanderlust/users"
	"wanderlust/utils"
)

const secret = "test-secret"

type fakeUsers struct {
	*querytest.MemSource[models.User]
	mu sync.Mutex
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{MemSource: querytest.New[models.User]()}
}

func (f *fakeUsers) ByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range f.Snapshot() {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, utils.Errorf(utils.ErrNotFound, "user not found")
}

func (f *fakeUsers) ByExternalID(_ context.Context, ext string) (*models.User, error) {
	for _, u := range f.Snapshot() {
		if u.ExternalID == ext {
			return &u, nil
		}
	}
	return nil, utils.Errorf(utils.ErrNotFound, "user not found")
}

func (f *fakeUsers) Upsert(_ context.Context, ext string, p users.Profile, now time.Time) (*models.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var (
		out     models.User
		created = true
	)
	f.Update(func(items []models.User) []models.User {
		for i := range items {
			if items[i].ExternalID == ext {
				created = false
				u := &items[i]
				if p.Email != "" {
					u.Email = p.Email
				}
				if p.Name != "" {
					u.Name = p.Name
				}
				if p.Phone != "" {
					u.Phone = p.Phone
				}
				u.LastLogin = now
				out = *u
				return items
			}
		}
		out = models.User{ID: utils.NewID(), ExternalID: ext, Email: p.Email, Name: p.Name, Phone: p.Phone,
			Role: models.RoleUser, LastLogin: now, CreatedAt: now}
		return append(items, out)
	})
	return &out, created, nil
}

func (f *fakeUsers) SetRole(context.Context, string, string) (*models.User, error) {
	panic("not used")
}

func token(t *testing.T, sub, email, name string) string {
	t.Helper()
	claims := middleware.Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestSyncCreatesThenUpdates(t *testing.T) {
	middleware.Init(secret, "")
	store := newFakeUsers()
	h := NewHandler(store)
	handle := middleware.Authenticate(h.Sync)
	tok := token(t, "ext-1", "ana@example.com", "Ana")

	r := httptest.NewRequest(http.MethodPost, "/api/auth/sync", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	handle(w, r, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var u models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.Equal(t, "ext-1", u.ExternalID)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)

	r = httptest.NewRequest(http.MethodPost, "/api/auth/sync", strings.NewReader(`{"name":"Ana Maria","phone":" +34 600 000 000 "}`))
	r.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	handle(w, r, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.Equal(t, "Ana Maria", u.Name, "body overrides token claims")
	assert.Equal(t, "+34 600 000 000", u.Phone)
	assert.Len(t, store.Snapshot(), 1)
}

func TestSyncRejectsBadBody(t *testing.T) {
	middleware.Init(secret, "")
	h := NewHandler(newFakeUsers())

	r := httptest.NewRequest(http.MethodPost, "/api/auth/sync", strings.NewReader(`{"email":"not-an-email"}`))
	r.Header.Set("Authorization", "Bearer "+token(t, "ext-1", "", ""))
	w := httptest.NewRecorder()
	middleware.Authenticate(h.Sync)(w, r, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeThroughRequireUser(t *testing.T) {
	middleware.Init(secret, "")
	store := newFakeUsers()
	h := NewHandler(store)
	middleware.FindUser = h.FindUser
	me := middleware.RequireUser(h.Me)

	tok := token(t, "ext-2", "ben@example.com", "Ben")
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	me(w, r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "not synced yet")

	_, _, err := store.Upsert(context.Background(), "ext-2", users.Profile{Name: "Ben"}, time.Now())
	require.NoError(t, err)

	w = httptest.NewRecorder()
	me(w, r, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ben"`)
}
