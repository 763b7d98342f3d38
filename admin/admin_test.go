package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/models"
	"wanderlust/query"
	"wanderlust/query/querytest"
)

type memBookings struct {
	*querytest.MemSource[models.Booking]
	calls []int
}

// Monthly groups in arbitrary order, the way the storage engine may.
func (m *memBookings) Monthly(_ context.Context, year int) ([]query.MonthlyStat, error) {
	m.calls = append(m.calls, year)
	byMonth := map[int]*query.MonthlyStat{}
	for _, b := range m.Snapshot() {
		if b.CreatedAt.Year() != year {
			continue
		}
		mo := int(b.CreatedAt.Month())
		if byMonth[mo] == nil {
			byMonth[mo] = &query.MonthlyStat{Month: mo}
		}
		byMonth[mo].Count++
		byMonth[mo].Revenue += b.TotalAmount
	}
	var out []query.MonthlyStat
	for _, s := range byMonth {
		out = append(out, *s)
	}
	return out, nil
}

type attacher struct{}

func (attacher) AttachPackages(_ context.Context, list []*models.Booking) error {
	for _, b := range list {
		b.Package = &models.PackageSummary{ID: b.PackageID, Title: "Trip " + b.PackageID}
	}
	return nil
}

type failingCounter struct{}

func (failingCounter) Count(context.Context, query.Predicate) (int64, error) {
	return 0, errors.New("connection reset")
}

func fixture() (*memBookings, *querytest.MemSource[models.Package], *querytest.MemSource[models.User]) {
	var list []models.Booking
	base := time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		list = append(list, models.Booking{
			ID:          fmt.Sprintf("b%d", i),
			PackageID:   "p1",
			TotalAmount: 100,
			CreatedAt:   base.AddDate(0, i%3*2, i),
		})
	}
	list = append(list, models.Booking{ID: "old", PackageID: "p1", TotalAmount: 999, CreatedAt: base.AddDate(-1, 0, 0)})

	pkgs := querytest.New(models.Package{ID: "p1"}, models.Package{ID: "p2"})
	users := querytest.New(models.User{ID: "u1"}, models.User{ID: "u2"}, models.User{ID: "u3"})
	return &memBookings{MemSource: querytest.New(list...)}, pkgs, users
}

func TestDashboard(t *testing.T) {
	bookings, pkgs, users := fixture()
	h := NewHandler(pkgs, users, bookings, attacher{})

	w := httptest.NewRecorder()
	h.Dashboard(w, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard?year=2025", nil), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var d Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 2025, d.Year)
	assert.Equal(t, Totals{Packages: 2, Bookings: 9, Users: 3, Revenue: 800}, d.Totals)

	require.Len(t, d.RecentBookings, recentBookings)
	for i := 1; i < len(d.RecentBookings); i++ {
		assert.False(t, d.RecentBookings[i].CreatedAt.After(d.RecentBookings[i-1].CreatedAt), "newest first")
	}
	require.NotNil(t, d.RecentBookings[0].Package)
	assert.Equal(t, "Trip p1", d.RecentBookings[0].Package.Title)

	require.Len(t, d.MonthlyStats, 12)
	for i, m := range d.MonthlyStats {
		assert.Equal(t, i+1, m.Month)
	}
	assert.Equal(t, int64(3), d.MonthlyStats[0].Count)
	assert.Equal(t, int64(3), d.MonthlyStats[2].Count)
	assert.Equal(t, int64(2), d.MonthlyStats[4].Count)
	assert.Zero(t, d.MonthlyStats[1].Count)
	assert.Zero(t, d.MonthlyStats[11].Revenue)
}

func TestDashboardDefaultsYear(t *testing.T) {
	bookings, pkgs, users := fixture()
	h := NewHandler(pkgs, users, bookings, attacher{})
	h.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	w := httptest.NewRecorder()
	h.Dashboard(w, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard?year=twenty", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{2024}, bookings.calls)

	var d Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 999.0, d.Totals.Revenue)
}

func TestDashboardEmpty(t *testing.T) {
	h := NewHandler(querytest.New[models.Package](), querytest.New[models.User](),
		&memBookings{MemSource: querytest.New[models.Booking]()}, attacher{})

	d, err := h.Build(context.Background(), 2025)
	require.NoError(t, err)
	assert.NotNil(t, d.RecentBookings)
	assert.Len(t, d.MonthlyStats, 12)
	assert.Zero(t, d.Totals)
}

func TestDashboardReadFailure(t *testing.T) {
	bookings, pkgs, _ := fixture()
	h := NewHandler(pkgs, failingCounter{}, bookings, attacher{})

	w := httptest.NewRecorder()
	h.Dashboard(w, httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
