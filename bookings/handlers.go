package bookings

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"wanderlust/models"
	"wanderlust/query"
	"wanderlust/utils"
)

var adminSortFields = []string{"createdAt", "startDate", "totalAmount"}

type Handler struct {
	svc           *Service
	voucherSecret []byte
}

func NewHandler(svc *Service, voucherSecret string) *Handler {
	return &Handler{svc: svc, voucherSecret: []byte(voucherSecret)}
}

// POST /api/bookings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in models.BookingInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	b, err := h.svc.Create(ctx, utils.CurrentUser(r), in)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, b)
}

// GET /api/bookings
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user := utils.CurrentUser(r)
	q := r.URL.Query()
	src := h.svc.Store().ForUser(user.ID)
	h.list(ctx, w, r, src, query.BookingFilter(q), query.FieldSort("createdAt", nil, "createdAt"), query.ParsePage(q))
}

// GET /api/admin/bookings
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	order := query.FieldSort(q.Get("sortBy"), adminSortFields, "createdAt")
	h.list(ctx, w, r, h.svc.Store(), query.BookingFilter(q), order, query.ParsePage(q))
}

func (h *Handler) list(ctx context.Context, w http.ResponseWriter, r *http.Request,
	src query.Source[models.Booking], p query.Predicate, o query.Ordering, pg query.Page) {
	res, err := query.Run(ctx, src, p, o, pg)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	ptrs := make([]*models.Booking, len(res.Items))
	for i := range res.Items {
		ptrs[i] = &res.Items[i]
	}
	if err := h.svc.AttachPackages(ctx, ptrs); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"bookings":   res.Items,
		"pagination": res.Summary,
	})
}

// GET /api/bookings/:id
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.svc.Get(ctx, utils.CurrentUser(r), ps.ByName("id"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// PUT /api/bookings/:id/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	b, err := h.svc.Cancel(ctx, utils.CurrentUser(r), ps.ByName("id"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

type statusBody struct {
	Status models.BookingStatus `json:"status" validate:"required"`
}

// PUT /api/admin/bookings/:id/status
func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body statusBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	b, err := h.svc.SetStatus(ctx, ps.ByName("id"), body.Status)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if err := h.svc.AttachPackages(ctx, []*models.Booking{b}); err != nil {
		log.Warn().Err(err).Str("booking", b.ID).Msg("[Bookings] attach package")
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// GET /api/bookings/:id/voucher
func (h *Handler) Voucher(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	b, err := h.svc.Get(ctx, utils.CurrentUser(r), ps.ByName("id"))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if !Voucherable(b) {
		utils.RespondWithErr(w, r, utils.Errorf(utils.ErrConflict, "vouchers are only issued for confirmed bookings"))
		return
	}

	pdf, err := RenderVoucher(b, h.voucherSecret)
	if err != nil {
		log.Error().Err(err).Str("booking", b.ID).Msg("[Bookings] voucher")
		utils.RespondWithErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="voucher-%s.pdf"`, strings.ToLower(utils.ShortRef(b.ID))))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

type verifyBody struct {
	Payload string `json:"payload" validate:"required"`
}

type verifyResponse struct {
	Valid   bool            `json:"valid"`
	Reason  string          `json:"reason,omitempty"`
	Booking *models.Booking `json:"booking,omitempty"`
}

// POST /api/admin/vouchers/verify
func (h *Handler) VerifyVoucher(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body verifyBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	id, ok := VerifyVoucherPayload(strings.TrimSpace(body.Payload), h.voucherSecret)
	if !ok {
		utils.RespondWithJSON(w, http.StatusOK, verifyResponse{Reason: "signature mismatch"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := h.svc.Get(ctx, utils.CurrentUser(r), id)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if !Voucherable(b) {
		utils.RespondWithJSON(w, http.StatusOK, verifyResponse{Reason: "booking is " + string(b.Status), Booking: b})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, verifyResponse{Valid: true, Booking: b})
}
