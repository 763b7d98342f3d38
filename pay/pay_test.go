package pay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/config"
	"wanderlust/models"
	"wanderlust/utils"
)

var (
	alice = &models.User{ID: "u-alice", Role: models.RoleUser}
	bob   = &models.User{ID: "u-bob", Role: models.RoleUser}
)

var testCfg = config.PaymentConfig{KeyID: "rzp_test", KeySecret: "key-secret", WebhookSecret: "hook-secret", Currency: "INR"}

func pendingBooking(id string) models.Booking {
	return models.Booking{
		ID: id, UserID: alice.ID, PackageID: "kyoto", TotalAmount: 1999.99,
		Status: models.BookingPending, PaymentStatus: models.PaymentPending,
	}
}

type fixture struct {
	svc      *PaymentService
	gw       *fakeGateway
	bookings *fakeBookings
	store    *memPayments
	locks    *memLocker
}

func newFixture(bs ...models.Booking) *fixture {
	f := &fixture{gw: &fakeGateway{}, bookings: newFakeBookings(bs...), store: &memPayments{}, locks: &memLocker{}}
	f.svc = NewPaymentService(f.gw, f.bookings, f.store, f.locks, testCfg)
	return f
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(pendingBooking("b1"))

	rec, err := f.svc.CreateOrder(context.Background(), alice, "b1")
	require.NoError(t, err)
	assert.Equal(t, "order_B1", rec.OrderID)
	assert.Equal(t, models.PaymentRecordCreated, rec.State)
	require.Len(t, f.gw.orders, 1)
	assert.Equal(t, int64(199999), f.gw.orders[0].Amount)
	assert.Equal(t, "INR", f.gw.orders[0].Currency)

	_, err = f.svc.CreateOrder(context.Background(), bob, "b1")
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestCreateOrderRejectsPaidOrClosed(t *testing.T) {
	paid := pendingBooking("paid")
	paid.Status, paid.PaymentStatus = models.BookingConfirmed, models.PaymentCompleted
	cancelled := pendingBooking("cancelled")
	cancelled.Status = models.BookingCancelled
	retry := pendingBooking("retry")
	retry.PaymentStatus = models.PaymentFailed

	f := newFixture(paid, cancelled, retry)
	for _, id := range []string{"paid", "cancelled"} {
		_, err := f.svc.CreateOrder(context.Background(), alice, id)
		assert.ErrorIs(t, err, utils.ErrConflict, id)
	}
	_, err := f.svc.CreateOrder(context.Background(), alice, "retry")
	assert.NoError(t, err, "a failed payment can be retried")
}

func TestCreateOrderGatewayDown(t *testing.T) {
	f := newFixture(pendingBooking("b1"))
	f.gw.err = errors.Join(utils.ErrUpstream, errors.New("boom"))

	_, err := f.svc.CreateOrder(context.Background(), alice, "b1")
	assert.ErrorIs(t, err, utils.ErrUpstream)
	assert.Empty(t, f.store.recs)
}

func verifyInput(orderID, paymentID string) VerifyInput {
	return VerifyInput{
		BookingID: "b1",
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: PaymentSignature(testCfg.KeySecret, orderID, paymentID),
	}
}

func TestVerifyConfirmsBookingOnce(t *testing.T) {
	f := newFixture(pendingBooking("b1"))
	ctx := context.Background()
	rec, err := f.svc.CreateOrder(ctx, alice, "b1")
	require.NoError(t, err)

	b, err := f.svc.Verify(ctx, alice, verifyInput(rec.OrderID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)
	assert.Equal(t, models.PaymentCompleted, b.PaymentStatus)
	assert.Equal(t, models.PaymentRecordCaptured, f.store.state(rec.OrderID))

	b, err = f.svc.Verify(ctx, alice, verifyInput(rec.OrderID, "pay_1"))
	require.NoError(t, err, "replayed verification is a no-op")
	assert.Equal(t, "pay_1", b.PaymentID)
}

func TestVerifySignatureMismatch(t *testing.T) {
	f := newFixture(pendingBooking("b1"))
	ctx := context.Background()
	rec, err := f.svc.CreateOrder(ctx, alice, "b1")
	require.NoError(t, err)

	in := verifyInput(rec.OrderID, "pay_1")
	in.Signature = strings.Repeat("0", 64)
	_, err = f.svc.Verify(ctx, alice, in)
	assert.ErrorIs(t, err, utils.ErrSignatureMismatch)
	assert.Equal(t, models.PaymentFailed, f.bookings.current("b1").PaymentStatus)
	assert.Equal(t, models.BookingPending, f.bookings.current("b1").Status)
	assert.Equal(t, models.PaymentRecordFailed, f.store.state(rec.OrderID))
}

func TestVerifyRejectsForeignOrder(t *testing.T) {
	other := pendingBooking("b2")
	f := newFixture(pendingBooking("b1"), other)
	ctx := context.Background()
	rec, err := f.svc.CreateOrder(ctx, alice, "b2")
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, alice, verifyInput(rec.OrderID, "pay_1"))
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	_, err = f.svc.Verify(ctx, alice, verifyInput("order_unknown", "pay_1"))
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestVerifyHoldsLockPerBooking(t *testing.T) {
	f := newFixture(pendingBooking("b1"))
	ctx := context.Background()
	rec, err := f.svc.CreateOrder(ctx, alice, "b1")
	require.NoError(t, err)

	release, ok, _ := f.locks.Acquire(ctx, "payment_lock:b1", lockTTL)
	require.True(t, ok)
	_, err = f.svc.Verify(ctx, alice, verifyInput(rec.OrderID, "pay_1"))
	assert.ErrorIs(t, err, utils.ErrConflict)
	release()

	_, err = f.svc.Verify(ctx, alice, verifyInput(rec.OrderID, "pay_1"))
	assert.NoError(t, err)
}

func TestConcurrentVerifyConfirmsOnce(t *testing.T) {
	f := newFixture(pendingBooking("b1"))
	ctx := context.Background()
	rec, err := f.svc.CreateOrder(ctx, alice, "b1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Verify(ctx, alice, verifyInput(rec.OrderID, "pay_1"))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, utils.ErrConflict)
		}
	}
	assert.Equal(t, models.PaymentCompleted, f.bookings.current("b1").PaymentStatus)
}

func TestRefund(t *testing.T) {
	f := newFixture(pendingBooking("b1"))
	ctx := context.Background()
	rec, err := f.svc.CreateOrder(ctx, alice, "b1")
	require.NoError(t, err)
	b, err := f.svc.Verify(ctx, alice, verifyInput(rec.OrderID, "pay_1"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Refund(ctx, b))
	require.Len(t, f.gw.refunds, 1)
	assert.Equal(t, "pay_1", f.gw.refunds[0].PaymentID)
	assert.Equal(t, int64(199999), f.gw.refunds[0].Amount)
	assert.Equal(t, models.PaymentRecordRefunded, f.store.state(rec.OrderID))

	unpaid := pendingBooking("b9")
	assert.ErrorIs(t, f.svc.Refund(ctx, &unpaid), utils.ErrConflict)
}

func TestOrderHandlerWithIdempotencyKey(t *testing.T) {
	f := newFixture(pendingBooking("b1"))
	h := Idempotent(newMemIdempotency(), f.svc.OrderHandler)

	send := func(body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/payments/order", strings.NewReader(body))
		r = r.WithContext(utils.WithUser(r.Context(), alice))
		r.Header.Set("Idempotency-Key", "k1")
		w := httptest.NewRecorder()
		h(w, r, nil)
		return w
	}

	first := send(`{"bookingId":"b1"}`)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Contains(t, first.Body.String(), `"keyId":"rzp_test"`)

	again := send(`{"bookingId":"b1"}`)
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "true", again.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), again.Body.String())
	assert.Len(t, f.gw.orders, 1, "the gateway is called once")

	assert.Equal(t, http.StatusConflict, send(`{"bookingId":"b2"}`).Code)
}
