// Package auth mirrors identity-provider accounts into the local users
// collection. Tokens are issued and revoked by the provider.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"wanderlust/middleware"
	"wanderlust/models"
	"wanderlust/users"
	"wanderlust/utils"
)

type Handler struct {
	store users.Store
	now   func() time.Time
}

func NewHandler(store users.Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// POST /api/auth/sync
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in models.SyncInput
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &in); err != nil {
			utils.RespondWithErr(w, r, err)
			return
		}
	}

	claims := middleware.ClaimsFromRequest(r)
	if claims == nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "missing token")
		return
	}
	profile := users.Profile{
		Email:        firstNonEmpty(in.Email, claims.Email),
		Name:         firstNonEmpty(in.Name, claims.Name),
		Phone:        strings.TrimSpace(in.Phone),
		ProfileImage: in.ProfileImage,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, created, err := h.store.Upsert(ctx, claims.Subject, profile, h.now())
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		log.Info().Str("user", u.ID).Msg("[Auth] user registered")
	}
	utils.RespondWithJSON(w, status, u)
}

// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.CurrentUser(r))
}

// FindUser resolves the token subject for middleware.RequireUser.
func (h *Handler) FindUser(ctx context.Context, externalID string) (*models.User, error) {
	return h.store.ByExternalID(ctx, externalID)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
