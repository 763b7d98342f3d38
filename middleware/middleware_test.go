package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/models"
	"wanderlust/utils"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, c Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func claimsFor(sub string, ttl time.Duration) Claims {
	return Claims{
		Email: sub + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
}

func setup(t *testing.T, users map[string]*models.User) {
	t.Helper()
	Init(testSecret, "idp")
	FindUser = func(_ context.Context, ext string) (*models.User, error) {
		if u, ok := users[ext]; ok {
			return u, nil
		}
		return nil, fmt.Errorf("user %s: %w", ext, utils.ErrNotFound)
	}
	t.Cleanup(func() { FindUser = nil; Init("", "") })
}

func run(h httprouter.Handle, token string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h(w, r, nil)
	return w
}

func ok(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusNoContent)
}

func TestAuthenticate(t *testing.T) {
	setup(t, nil)

	var seen string
	h := Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		seen = utils.GetUserIDFromRequest(r)
		assert.Equal(t, "ext-1@example.com", ClaimsFromRequest(r).Email)
		w.WriteHeader(http.StatusNoContent)
	})

	w := run(h, sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("ext-1", time.Hour)))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "ext-1", seen)
}

func TestAuthenticateRejects(t *testing.T) {
	setup(t, nil)

	wrongIssuer := claimsFor("ext-1", time.Hour)
	wrongIssuer.Issuer = "someone-else"
	noExpiry := claimsFor("ext-1", time.Hour)
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"missing":      "",
		"garbage":      "not.a.jwt",
		"expired":      sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("ext-1", -time.Minute)),
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), claimsFor("ext-1", time.Hour)),
		"wrong alg":    sign(t, jwt.SigningMethodHS384, []byte(testSecret), claimsFor("ext-1", time.Hour)),
		"issuer":       sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"no expiry":    sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
		"no subject":   sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("", time.Hour)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, run(Authenticate(ok), token).Code)
		})
	}
}

func TestRequireUserAndAdmin(t *testing.T) {
	setup(t, map[string]*models.User{
		"u": {ID: "1", ExternalID: "u", Role: models.RoleUser},
		"a": {ID: "2", ExternalID: "a", Role: models.RoleAdmin, Permissions: []string{}},
	})
	tok := func(sub string) string {
		return sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor(sub, time.Hour))
	}

	assert.Equal(t, http.StatusNoContent, run(RequireUser(ok), tok("u")).Code)
	assert.Equal(t, http.StatusUnauthorized, run(RequireUser(ok), tok("stranger")).Code)

	assert.Equal(t, http.StatusForbidden, run(RequireAdmin(ok), tok("u")).Code)
	assert.Equal(t, http.StatusNoContent, run(RequireAdmin(ok), tok("a")).Code)

	var got *models.User
	h := RequireUser(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		got = utils.CurrentUser(r)
	})
	run(h, tok("u"))
	require.NotNil(t, got)
	assert.Equal(t, "1", got.ID)
}

func TestWebSocketTokenFromQuery(t *testing.T) {
	setup(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/?token="+sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("ext-9", time.Hour)), nil)
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	Authenticate(ok)(w, r, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	plain := httptest.NewRequest(http.MethodGet, "/?token=abc", nil)
	w = httptest.NewRecorder()
	Authenticate(ok)(w, plain, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChainOrder(t *testing.T) {
	var trace []string
	mark := func(name string) Middleware {
		return func(next httprouter.Handle) httprouter.Handle {
			return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
				trace = append(trace, name)
				next(w, r, ps)
			}
		}
	}
	h := Chain(mark("outer"), mark("inner"))(func(http.ResponseWriter, *http.Request, httprouter.Params) {
		trace = append(trace, "handler")
	})
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}
