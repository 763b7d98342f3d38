package users

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"wanderlust/models"
	"wanderlust/query"
	"wanderlust/utils"
)

var sortFields = []string{"createdAt", "name", "email", "lastLogin"}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// GET /api/admin/users
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	res, err := query.Run[models.User](ctx, h.store, query.UserFilter(q),
		query.FieldSort(q.Get("sortBy"), sortFields, "createdAt"), query.ParsePage(q))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"users":      res.Items,
		"pagination": res.Summary,
	})
}

// GET /api/admin/users/:id
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.store.ByID(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, u)
}

type roleBody struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// PUT /api/admin/users/:id/role
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body roleBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	id := ps.ByName("id")
	me := utils.CurrentUser(r)
	if me != nil && me.ID == id && body.Role != models.RoleAdmin {
		utils.RespondWithError(w, http.StatusBadRequest, "you cannot remove your own admin role")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.store.SetRole(ctx, id, body.Role)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	log.Info().Str("user", u.ID).Str("role", u.Role).Msg("[Users] role changed")
	utils.RespondWithJSON(w, http.StatusOK, u)
}
