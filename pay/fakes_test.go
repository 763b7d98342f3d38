package pay

import (
	"context"
	"sync"
	"time"

	"wanderlust/models"
	"wanderlust/utils"
)

type fakeGateway struct {
	mu      sync.Mutex
	orders  []Order
	refunds []Refund
	err     error
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, _ map[string]string) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	o := Order{ID: "order_" + receipt, Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}
	g.orders = append(g.orders, o)
	return &o, nil
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string, amount int64) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	rf := Refund{ID: "rfnd_1", PaymentID: paymentID, Amount: amount, Status: "processed"}
	g.refunds = append(g.refunds, rf)
	return &rf, nil
}

// fakeBookings follows the same conditional rules as the booking service.
type fakeBookings struct {
	mu   sync.Mutex
	byID map[string]*models.Booking
}

func newFakeBookings(bs ...models.Booking) *fakeBookings {
	f := &fakeBookings{byID: map[string]*models.Booking{}}
	for i := range bs {
		b := bs[i]
		f.byID[b.ID] = &b
	}
	return f
}

func (f *fakeBookings) current(id string) models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

func (f *fakeBookings) Get(_ context.Context, user *models.User, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, utils.Errorf(utils.ErrNotFound, "booking not found")
	}
	if b.UserID != user.ID && !user.IsAdmin() {
		return nil, utils.Errorf(utils.ErrForbidden, "not your booking")
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) MarkPaid(_ context.Context, id, paymentID string) (*models.Booking, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, false, utils.Errorf(utils.ErrNotFound, "booking not found")
	}
	if b.PaymentStatus == models.PaymentCompleted && b.PaymentID == paymentID {
		cp := *b
		return &cp, false, nil
	}
	if b.Status != models.BookingPending || (b.PaymentStatus != models.PaymentPending && b.PaymentStatus != models.PaymentFailed) {
		return nil, false, utils.Errorf(utils.ErrInvalidTransition, "cannot confirm")
	}
	b.Status, b.PaymentStatus, b.PaymentID = models.BookingConfirmed, models.PaymentCompleted, paymentID
	cp := *b
	return &cp, true, nil
}

func (f *fakeBookings) MarkPaymentFailed(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.byID[id]
	if b.PaymentStatus != models.PaymentPending && b.PaymentStatus != models.PaymentFailed {
		return nil, utils.Errorf(utils.ErrInvalidTransition, "cannot fail")
	}
	b.PaymentStatus = models.PaymentFailed
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) MarkRefunded(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.byID[id]
	if b.PaymentStatus == models.PaymentRefunded {
		cp := *b
		return &cp, nil
	}
	if b.PaymentStatus != models.PaymentCompleted {
		return nil, utils.Errorf(utils.ErrInvalidTransition, "cannot refund")
	}
	b.PaymentStatus = models.PaymentRefunded
	cp := *b
	return &cp, nil
}

type memPayments struct {
	mu   sync.Mutex
	recs []models.Payment
}

func (m *memPayments) Insert(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, *p)
	return nil
}

func (m *memPayments) find(match func(models.Payment) bool) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		if match(m.recs[i]) {
			cp := m.recs[i]
			return &cp, nil
		}
	}
	return nil, utils.Errorf(utils.ErrNotFound, "payment not found")
}

func (m *memPayments) ByOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	return m.find(func(p models.Payment) bool { return p.OrderID == orderID })
}

func (m *memPayments) ByPaymentID(_ context.Context, paymentID string) (*models.Payment, error) {
	return m.find(func(p models.Payment) bool { return p.PaymentID != "" && p.PaymentID == paymentID })
}

func (m *memPayments) SetState(_ context.Context, orderID, state, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].OrderID == orderID {
			m.recs[i].State = state
			if paymentID != "" {
				m.recs[i].PaymentID = paymentID
			}
			return nil
		}
	}
	return utils.Errorf(utils.ErrNotFound, "payment not found")
}

func (m *memPayments) state(orderID string) string {
	p, err := m.ByOrderID(context.Background(), orderID)
	if err != nil {
		return ""
	}
	return p.State
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return func() {}, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

type memIdempotency struct {
	mu   sync.Mutex
	recs map[string]*models.IdempotencyRecord
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{recs: map[string]*models.IdempotencyRecord{}}
}

func (m *memIdempotency) Reserve(_ context.Context, rec *models.IdempotencyRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.Key]; ok {
		return false, nil
	}
	cp := *rec
	m.recs[rec.Key] = &cp
	return true, nil
}

func (m *memIdempotency) Get(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok {
		return nil, utils.Errorf(utils.ErrNotFound, "no record")
	}
	cp := *rec
	return &cp, nil
}

func (m *memIdempotency) SaveResponse(_ context.Context, key string, resp models.IdempotencyResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.recs[key]; ok {
		resp.Body = append([]byte(nil), resp.Body...)
		rec.Response = &resp
	}
	return nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, key)
	return nil
}
