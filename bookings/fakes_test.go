package bookings

import (
	"context"
	"errors"
	"sync"
	"time"

	"wanderlust/models"
	"wanderlust/query"
	"wanderlust/query/querytest"
	"wanderlust/utils"
)

type memStore struct {
	*querytest.MemSource[models.Booking]
}

func newMemStore(items ...models.Booking) *memStore {
	return &memStore{querytest.New(items...)}
}

type scoped struct {
	src   query.Source[models.Booking]
	scope query.Predicate
}

func (s scoped) Count(ctx context.Context, p query.Predicate) (int64, error) {
	return s.src.Count(ctx, s.scope.And(p.Clauses()...))
}

func (s scoped) Find(ctx context.Context, p query.Predicate, o query.Ordering, skip, limit int64) ([]models.Booking, error) {
	return s.src.Find(ctx, s.scope.And(p.Clauses()...), o, skip, limit)
}

func (m *memStore) ForUser(userID string) query.Source[models.Booking] {
	return scoped{src: m.MemSource, scope: query.Predicate{}.And(query.Eq("userId", userID))}
}

func (m *memStore) Insert(_ context.Context, b *models.Booking) error {
	m.MemSource.Update(func(items []models.Booking) []models.Booking { return append(items, *b) })
	return nil
}

func (m *memStore) ByID(_ context.Context, id string) (*models.Booking, error) {
	for _, b := range m.Snapshot() {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, utils.Errorf(utils.ErrNotFound, "booking not found")
}

func statusIn(s models.BookingStatus, list []models.BookingStatus) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func paymentIn(s models.PaymentStatus, list []models.PaymentStatus) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *memStore) Update(ctx context.Context, id string, c Cond, p Patch) (*models.Booking, error) {
	var (
		out   *models.Booking
		found bool
	)
	m.MemSource.Update(func(items []models.Booking) []models.Booking {
		for i := range items {
			b := &items[i]
			if b.ID != id {
				continue
			}
			found = true
			if !statusIn(b.Status, c.Statuses) || !paymentIn(b.PaymentStatus, c.PaymentStatuses) {
				return items
			}
			if p.Status != nil {
				b.Status = *p.Status
			}
			if p.PaymentStatus != nil {
				b.PaymentStatus = *p.PaymentStatus
			}
			if p.PaymentID != nil {
				b.PaymentID = *p.PaymentID
			}
			b.UpdatedAt = nowUTC()
			cp := *b
			out = &cp
		}
		return items
	})
	switch {
	case !found:
		return nil, utils.Errorf(utils.ErrNotFound, "booking not found")
	case out == nil:
		return nil, utils.Errorf(utils.ErrInvalidTransition, "booking is not in a state that allows this change")
	}
	return out, nil
}

type fakePackages map[string]models.Package

func (f fakePackages) ByID(_ context.Context, id string) (*models.Package, error) {
	p, ok := f[id]
	if !ok {
		return nil, utils.Errorf(utils.ErrNotFound, "package not found")
	}
	return &p, nil
}

func (f fakePackages) Summaries(_ context.Context, ids []string) (map[string]models.PackageSummary, error) {
	out := map[string]models.PackageSummary{}
	for _, id := range ids {
		if p, ok := f[id]; ok {
			out[id] = *summaryOf(&p)
		}
	}
	return out, nil
}

type recorder struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (r *recorder) Publish(_ context.Context, ev models.BookingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeRefunder struct {
	calls []string
	err   error
}

func (f *fakeRefunder) Refund(_ context.Context, b *models.Booking) error {
	f.calls = append(f.calls, b.ID)
	return f.err
}

var errGateway = errors.Join(utils.ErrUpstream, errors.New("gateway timeout"))

type memLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	taken []string
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	l.taken = append(l.taken, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

func (l *memLocker) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key]
}

// hookRefunder runs during the gateway call, while the lock is held.
type hookRefunder struct {
	fakeRefunder
	during func()
}

func (h *hookRefunder) Refund(ctx context.Context, b *models.Booking) error {
	if h.during != nil {
		h.during()
	}
	return h.fakeRefunder.Refund(ctx, b)
}
