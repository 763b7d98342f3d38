package packages

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"wanderlust/models"
	"wanderlust/query"
	"wanderlust/utils"
)

const featuredLimit = 6

type Handler struct {
	store Store
	now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// ListPackages serves GET /api/packages and GET /api/admin/packages.
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	sortBy := q.Get("sortBy")
	if sortBy == "" {
		sortBy = q.Get("sort")
	}
	res, err := query.Run[models.Package](ctx, h.store, query.PackageFilter(q), query.PackageSort(sortBy), query.ParsePage(q))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	for i := range res.Items {
		res.Items[i].Normalize()
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"packages":   res.Items,
		"pagination": res.Summary,
	})
}

// GET /api/featured/packages
func (h *Handler) FeaturedPackages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.store.Featured(ctx, featuredLimit)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	for i := range list {
		list[i].Normalize()
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GET /api/locations
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	locs, err := h.store.Locations(ctx)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, locs)
}

// GET /api/packages/:slug
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.store.BySlug(ctx, ps.ByName("slug"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	p.Normalize()
	utils.RespondWithJSON(w, http.StatusOK, p)
}

// POST /api/admin/packages
func (h *Handler) CreatePackage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in models.PackageInput
	if err := decodeInput(r, &in); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	slug, err := h.slugFor(ctx, in.Title, "")
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	now := h.now().UTC()
	p := apply(&models.Package{ID: utils.NewID(), CreatedAt: now}, in)
	p.Slug = slug
	p.UpdatedAt = now
	if err := h.store.Insert(ctx, p); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	log.Info().Str("package", p.ID).Str("slug", p.Slug).Msg("[Packages] created")
	utils.RespondWithJSON(w, http.StatusCreated, p)
}

// PUT /api/admin/packages/:id
func (h *Handler) UpdatePackage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in models.PackageInput
	if err := decodeInput(r, &in); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	existing, err := h.store.ByID(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	slug := existing.Slug
	if strings.TrimSpace(in.Title) != existing.Title {
		if slug, err = h.slugFor(ctx, in.Title, existing.ID); err != nil {
			utils.RespondWithErr(w, r, err)
			return
		}
	}

	p := apply(existing, in)
	p.Slug = slug
	p.UpdatedAt = h.now().UTC()
	if err := h.store.Replace(ctx, p); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	log.Info().Str("package", p.ID).Msg("[Packages] updated")
	utils.RespondWithJSON(w, http.StatusOK, p)
}

// DELETE /api/admin/packages/:id
func (h *Handler) DeletePackage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := ps.ByName("id")
	if err := h.store.Delete(ctx, id); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	log.Info().Str("package", id).Msg("[Packages] deleted")
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "package deleted"})
}

func (h *Handler) slugFor(ctx context.Context, title, exceptID string) (string, error) {
	return utils.UniqueSlug(ctx, utils.Slugify(title), func(ctx context.Context, slug string) (bool, error) {
		return h.store.SlugTaken(ctx, slug, exceptID)
	})
}

func decodeInput(r *http.Request, in *models.PackageInput) error {
	if err := utils.DecodeJSON(r, in); err != nil {
		return err
	}
	if in.DiscountedPrice != nil && *in.DiscountedPrice >= in.Price {
		return utils.Errorf(utils.ErrBadRequest, "discountedPrice must be lower than price")
	}
	return nil
}

// apply copies the editable fields of in onto p.
func apply(p *models.Package, in models.PackageInput) *models.Package {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.ShortDescription = in.ShortDescription
	p.Duration = in.Duration
	p.Location = strings.TrimSpace(in.Location)
	p.Price = in.Price
	p.DiscountedPrice = in.DiscountedPrice
	p.Images = in.Images
	p.Inclusions = in.Inclusions
	p.Exclusions = in.Exclusions
	p.Itinerary = in.Itinerary
	p.Featured = in.Featured
	p.MaxGroupSize = in.MaxGroupSize
	p.Normalize()
	return p
}
