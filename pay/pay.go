package pay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"wanderlust/config"
	"wanderlust/models"
	"wanderlust/utils"
)

// lockTTL bounds how long one verification may hold a booking.
const lockTTL = 30 * time.Second

// Bookings is the booking state machine as seen by the payment flow.
type Bookings interface {
	Get(ctx context.Context, user *models.User, id string) (*models.Booking, error)
	MarkPaid(ctx context.Context, id, paymentID string) (*models.Booking, bool, error)
	MarkPaymentFailed(ctx context.Context, id string) (*models.Booking, error)
	MarkRefunded(ctx context.Context, id string) (*models.Booking, error)
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// PaymentService raises gateway orders for bookings and records their outcome.
type PaymentService struct {
	gateway  Gateway
	bookings Bookings
	store    Store
	locks    Locker
	cfg      config.PaymentConfig
}

func NewPaymentService(gw Gateway, bookings Bookings, store Store, locks Locker, cfg config.PaymentConfig) *PaymentService {
	return &PaymentService{gateway: gw, bookings: bookings, store: store, locks: locks, cfg: cfg}
}

// minorUnits converts an amount to the gateway's smallest currency unit.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateOrder opens a gateway order for the booking's total.
func (p *PaymentService) CreateOrder(ctx context.Context, user *models.User, bookingID string) (*models.Payment, error) {
	b, err := p.bookings.Get(ctx, user, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingPending ||
		(b.PaymentStatus != models.PaymentPending && b.PaymentStatus != models.PaymentFailed) {
		return nil, utils.Errorf(utils.ErrConflict,
			fmt.Sprintf("booking is %s with payment %s and cannot be paid", b.Status, b.PaymentStatus))
	}

	order, err := p.gateway.CreateOrder(ctx, minorUnits(b.TotalAmount), p.cfg.Currency, utils.ShortRef(b.ID),
		map[string]string{"bookingId": b.ID})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	now := time.Now().UTC()
	rec := &models.Payment{
		ID:        utils.NewID(),
		BookingID: b.ID,
		UserID:    b.UserID,
		OrderID:   order.ID,
		Amount:    b.TotalAmount,
		Currency:  p.cfg.Currency,
		State:     models.PaymentRecordCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.store.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("record order: %w", err)
	}
	log.Info().Str("booking", b.ID).Str("order", order.ID).Int64("amount", order.Amount).Msg("[Pay] order created")
	return rec, nil
}

// VerifyInput is what the checkout hands back after a payment.
type VerifyInput struct {
	BookingID string `json:"bookingId" validate:"required"`
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// Verify checks the checkout signature and confirms the booking. A booking is
// verified by one request at a time.
func (p *PaymentService) Verify(ctx context.Context, user *models.User, in VerifyInput) (*models.Booking, error) {
	b, err := p.bookings.Get(ctx, user, in.BookingID)
	if err != nil {
		return nil, err
	}
	rec, err := p.store.ByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if rec.BookingID != b.ID {
		return nil, utils.Errorf(utils.ErrBadRequest, "order does not belong to this booking")
	}

	release, ok, err := p.locks.Acquire(ctx, "payment_lock:"+b.ID, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire payment lock: %w", err)
	}
	if !ok {
		return nil, utils.Errorf(utils.ErrConflict, "payment verification already in progress")
	}
	defer release()

	if !VerifyPaymentSignature(p.cfg.KeySecret, in.OrderID, in.PaymentID, in.Signature) {
		log.Warn().Str("booking", b.ID).Str("order", in.OrderID).Msg("[Pay] signature mismatch")
		if _, err := p.bookings.MarkPaymentFailed(ctx, b.ID); err != nil && !errors.Is(err, utils.ErrInvalidTransition) {
			log.Error().Err(err).Str("booking", b.ID).Msg("[Pay] mark failed")
		}
		p.setState(ctx, in.OrderID, models.PaymentRecordFailed, "")
		return nil, utils.Errorf(utils.ErrSignatureMismatch, "payment signature mismatch")
	}

	out, changed, err := p.bookings.MarkPaid(ctx, b.ID, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if changed {
		p.setState(ctx, in.OrderID, models.PaymentRecordCaptured, in.PaymentID)
	}
	out.Package = b.Package
	return out, nil
}

// Refund returns a booking's captured payment in full.
func (p *PaymentService) Refund(ctx context.Context, b *models.Booking) error {
	if b.PaymentID == "" {
		return utils.Errorf(utils.ErrConflict, "booking has no captured payment")
	}
	rf, err := p.gateway.Refund(ctx, b.PaymentID, minorUnits(b.TotalAmount))
	if err != nil {
		return err
	}
	if rec, err := p.store.ByPaymentID(ctx, b.PaymentID); err == nil {
		p.setState(ctx, rec.OrderID, models.PaymentRecordRefunded, "")
	}
	log.Info().Str("booking", b.ID).Str("refund", rf.ID).Msg("[Pay] refund requested")
	return nil
}

func (p *PaymentService) setState(ctx context.Context, orderID, state, paymentID string) {
	if err := p.store.SetState(ctx, orderID, state, paymentID); err != nil {
		log.Warn().Err(err).Str("order", orderID).Str("state", state).Msg("[Pay] record state")
	}
}
