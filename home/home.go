// Package home serves the editable blocks of the public home page.
package home

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"wanderlust/models"
	"wanderlust/utils"
)

// Sections lists the blocks the front page renders, in page order.
var Sections = []string{"hero", "about", "why-us", "destinations", "testimonials", "contact"}

func known(section string) bool {
	for _, s := range Sections {
		if s == section {
			return true
		}
	}
	return false
}

func order(section string) int {
	for i, s := range Sections {
		if s == section {
			return i
		}
	}
	return len(Sections)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// GET /api/home
func (h *Handler) All(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.store.All(ctx)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	sort.SliceStable(list, func(i, j int) bool { return order(list[i].Section) < order(list[j].Section) })

	w.Header().Set("Cache-Control", "public, max-age=60")
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"sections": list})
}

// GET /api/home/:section
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	section := strings.ToLower(ps.ByName("section"))
	if !known(section) {
		utils.RespondWithError(w, http.StatusNotFound, "section not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sec, err := h.store.Get(ctx, section)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	utils.RespondWithJSON(w, http.StatusOK, sec)
}

// PUT /api/admin/home/:section
func (h *Handler) Put(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	section := strings.ToLower(ps.ByName("section"))
	if !known(section) {
		utils.RespondWithError(w, http.StatusBadRequest, "unknown section "+section)
		return
	}

	var in models.HomeSectionInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sec := &models.HomeSection{
		Section:  section,
		Title:    strings.TrimSpace(in.Title),
		Subtitle: strings.TrimSpace(in.Subtitle),
		Body:     in.Body,
		Images:   in.Images,
		Items:    in.Items,
	}
	if err := h.store.Put(ctx, sec); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	log.Info().Str("section", section).Msg("[Home] section updated")
	utils.RespondWithJSON(w, http.StatusOK, sec)
}
