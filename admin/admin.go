// Package admin serves the back-office dashboard.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"

	"wanderlust/models"
	"wanderlust/query"
	"wanderlust/utils"
)

const recentBookings = 5

type Counter interface {
	Count(ctx context.Context, p query.Predicate) (int64, error)
}

// BookingStats is the booking store as seen by the dashboard.
type BookingStats interface {
	query.Source[models.Booking]
	Monthly(ctx context.Context, year int) ([]query.MonthlyStat, error)
}

type PackageAttacher interface {
	AttachPackages(ctx context.Context, list []*models.Booking) error
}

type Totals struct {
	Packages int64   `json:"packages"`
	Bookings int64   `json:"bookings"`
	Users    int64   `json:"users"`
	Revenue  float64 `json:"revenue"`
}

type Dashboard struct {
	Year           int                 `json:"year"`
	Totals         Totals              `json:"totals"`
	RecentBookings []models.Booking    `json:"recentBookings"`
	MonthlyStats   []query.MonthlyStat `json:"monthlyStats"`
}

type Handler struct {
	packages Counter
	users    Counter
	bookings BookingStats
	attach   PackageAttacher
	now      func() time.Time
}

func NewHandler(packages, users Counter, bookings BookingStats, attach PackageAttacher) *Handler {
	return &Handler{packages: packages, users: users, bookings: bookings, attach: attach, now: time.Now}
}

// GET /api/admin/dashboard?year=
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	d, err := h.Build(ctx, query.ParseYear(r.URL.Query().Get("year"), h.now()))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, d)
}

// Build issues the counts, the recent bookings read and the monthly
// aggregation concurrently.
func (h *Handler) Build(ctx context.Context, year int) (*Dashboard, error) {
	var (
		d   = Dashboard{Year: year}
		raw []query.MonthlyStat
		all query.Predicate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Totals.Packages, err = h.packages.Count(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		d.Totals.Bookings, err = h.bookings.Count(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		d.Totals.Users, err = h.users.Count(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		order := query.Ordering{{Field: "createdAt", Dir: query.Desc}}
		d.RecentBookings, err = h.bookings.Find(gctx, all, order, 0, recentBookings)
		if err != nil {
			return err
		}
		ptrs := make([]*models.Booking, len(d.RecentBookings))
		for i := range d.RecentBookings {
			ptrs[i] = &d.RecentBookings[i]
		}
		return h.attach.AttachPackages(gctx, ptrs)
	})
	g.Go(func() (err error) {
		raw, err = h.bookings.Monthly(gctx, year)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.MonthlyStats = query.FillMonths(raw)
	for _, m := range d.MonthlyStats {
		d.Totals.Revenue += m.Revenue
	}
	if d.RecentBookings == nil {
		d.RecentBookings = []models.Booking{}
	}
	return &d, nil
}
