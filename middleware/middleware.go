package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"wanderlust/globals"
	"wanderlust/models"
	"wanderlust/utils"
)

// Claims issued by the identity provider. Subject is the external user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

var (
	jwtSecret []byte
	jwtIssuer string
)

// Init sets the shared secret and, when non-empty, the required issuer.
func Init(secret, issuer string) {
	jwtSecret = []byte(secret)
	jwtIssuer = issuer
}

// FindUser loads the local user for an identity-provider subject. It must
// return an error wrapping utils.ErrNotFound for unknown subjects.
var FindUser func(ctx context.Context, externalID string) (*models.User, error)

func Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString := bearer(r)
		if tokenString == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := ValidateJWT(tokenString)
		if err != nil {
			log.Debug().Err(err).Msg("[Auth] token rejected")
			utils.RespondWithError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.Subject)
		ctx = context.WithValue(ctx, globals.ClaimsKey, claims)
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireUser authenticates and then loads the caller's user record.
func RequireUser(next httprouter.Handle) httprouter.Handle {
	return Authenticate(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		u, err := FindUser(r.Context(), utils.GetUserIDFromRequest(r))
		if errors.Is(err, utils.ErrNotFound) {
			utils.RespondWithError(w, http.StatusUnauthorized, "user not registered")
			return
		}
		if err != nil {
			utils.RespondWithErr(w, r, err)
			return
		}
		next(w, r.WithContext(utils.WithUser(r.Context(), u)), ps)
	})
}

// RequireAdmin is RequireUser plus role "admin". Permissions are not consulted.
func RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return RequireUser(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !utils.CurrentUser(r).IsAdmin() {
			utils.RespondWithError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r, ps)
	})
}

// ClaimsFromRequest returns the claims stored by Authenticate.
func ClaimsFromRequest(r *http.Request) *Claims {
	c, _ := r.Context().Value(globals.ClaimsKey).(*Claims)
	return c
}

// bearer reads "Authorization: Bearer <t>". Browsers cannot set headers on a
// WebSocket handshake, so upgrades may pass ?token= instead.
func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("token")
	}
	return ""
}

func ValidateJWT(tokenString string) (*Claims, error) {
	if len(jwtSecret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
	}
	if jwtIssuer != "" {
		opts = append(opts, jwt.WithIssuer(jwtIssuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return jwtSecret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("unauthorized: token has no subject")
	}
	return claims, nil
}

type Middleware func(httprouter.Handle) httprouter.Handle

// Chain composes mws so the first one runs outermost.
func Chain(mws ...Middleware) Middleware {
	return func(h httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
