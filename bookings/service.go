package bookings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"wanderlust/models"
	"wanderlust/utils"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

// Publisher fans booking events out to the live feed and mailer.
type Publisher interface {
	Publish(ctx context.Context, ev models.BookingEvent)
}

// Refunder returns the captured payment of a booking through the gateway.
type Refunder interface {
	Refund(ctx context.Context, b *models.Booking) error
}

// Locker serializes payment changes of one booking across instances.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// refundLockTTL bounds how long one refund may hold a booking.
const refundLockTTL = 30 * time.Second

// Service owns every booking state change; handlers and the payment flow
// call into it.
type Service struct {
	store    Store
	packages PackageLookup
	events   Publisher
	refunder Refunder
	locks    Locker
}

func NewService(store Store, packages PackageLookup, events Publisher) *Service {
	return &Service{store: store, packages: packages, events: events}
}

// SetRefunder wires the payment gateway in after both services exist.
func (s *Service) SetRefunder(r Refunder) {
	s.refunder = r
}

// SetLocker shares the payment lock with verification so a refund never
// races a capture or another cancel.
func (s *Service) SetLocker(l Locker) {
	s.locks = l
}

func (s *Service) Store() Store {
	return s.store
}

func (s *Service) Create(ctx context.Context, user *models.User, in models.BookingInput) (*models.Booking, error) {
	pkg, err := s.packages.ByID(ctx, in.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg.MaxGroupSize > 0 && in.NumberOfPeople > pkg.MaxGroupSize {
		return nil, utils.Errorf(utils.ErrBadRequest,
			fmt.Sprintf("numberOfPeople exceeds the maximum group size of %d", pkg.MaxGroupSize))
	}
	now := nowUTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if in.StartDate.UTC().Before(today) {
		return nil, utils.Errorf(utils.ErrBadRequest, "startDate cannot be in the past")
	}

	b := &models.Booking{
		ID:              utils.NewID(),
		UserID:          user.ID,
		PackageID:       pkg.ID,
		StartDate:       in.StartDate.UTC(),
		NumberOfPeople:  in.NumberOfPeople,
		TotalAmount:     roundCents(pkg.EffectivePrice() * float64(in.NumberOfPeople)),
		Status:          models.BookingPending,
		PaymentStatus:   models.PaymentPending,
		ContactInfo:     in.ContactInfo,
		SpecialRequests: in.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Insert(ctx, b); err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	b.Package = summaryOf(pkg)

	log.Info().Str("booking", b.ID).Str("package", pkg.ID).Float64("total", b.TotalAmount).Msg("[Bookings] created")
	s.emit(ctx, models.EventBookingCreated, b)
	return b, nil
}

// Get returns a booking the user owns, or any booking for an admin.
func (s *Service) Get(ctx context.Context, user *models.User, id string) (*models.Booking, error) {
	b, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != user.ID && !user.IsAdmin() {
		return nil, utils.Errorf(utils.ErrForbidden, "not your booking")
	}
	if err := s.AttachPackages(ctx, []*models.Booking{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// Cancel cancels a PENDING or CONFIRMED booking. A captured payment is
// refunded first; if the gateway refuses, the booking is left as it was.
func (s *Service) Cancel(ctx context.Context, user *models.User, id string) (*models.Booking, error) {
	b, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, b)
}

func (s *Service) cancel(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	if err := cancellable(b); err != nil {
		return nil, err
	}
	if b.PaymentStatus == models.PaymentCompleted {
		return s.cancelPaid(ctx, b)
	}

	cancelled := models.BookingCancelled
	cond := Cond{Statuses: []models.BookingStatus{b.Status}, PaymentStatuses: []models.PaymentStatus{b.PaymentStatus}}
	out, err := s.store.Update(ctx, b.ID, cond, Patch{Status: &cancelled})
	if err != nil {
		return nil, err
	}
	return s.cancelled(ctx, b, out), nil
}

// cancelPaid refunds and cancels under the booking's payment lock. The
// booking is read again once the lock is held.
func (s *Service) cancelPaid(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	if s.refunder == nil {
		return nil, utils.Errorf(utils.ErrUpstream, "refunds are not configured")
	}
	if s.locks != nil {
		release, ok, err := s.locks.Acquire(ctx, "payment_lock:"+b.ID, refundLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire payment lock: %w", err)
		}
		if !ok {
			return nil, utils.Errorf(utils.ErrConflict, "a payment change for this booking is in progress")
		}
		defer release()

		cur, err := s.store.ByID(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		cur.Package = b.Package
		if err := cancellable(cur); err != nil {
			return nil, err
		}
		if cur.PaymentStatus != models.PaymentCompleted {
			return s.cancel(ctx, cur)
		}
		b = cur
	}

	if err := s.refunder.Refund(ctx, b); err != nil {
		return nil, fmt.Errorf("refund booking %s: %w", b.ID, err)
	}

	cancelled, refunded := models.BookingCancelled, models.PaymentRefunded
	out, err := s.store.Update(ctx, b.ID,
		Cond{Statuses: []models.BookingStatus{b.Status}, PaymentStatuses: []models.PaymentStatus{models.PaymentCompleted}},
		Patch{Status: &cancelled, PaymentStatus: &refunded})
	if isInvalidTransition(err) {
		// record the refund even though the status moved on
		if _, merr := s.MarkRefunded(ctx, b.ID); merr != nil {
			log.Error().Err(merr).Str("booking", b.ID).Msg("[Bookings] refunded but not recorded")
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return s.cancelled(ctx, b, out), nil
}

func (s *Service) cancelled(ctx context.Context, before, out *models.Booking) *models.Booking {
	out.Package = before.Package
	log.Info().Str("booking", out.ID).Str("paymentStatus", string(out.PaymentStatus)).Msg("[Bookings] cancelled")
	s.emit(ctx, models.EventBookingCancelled, out)
	return out
}

func cancellable(b *models.Booking) error {
	if !models.CanTransition(b.Status, models.BookingCancelled) {
		return utils.Errorf(utils.ErrInvalidTransition,
			fmt.Sprintf("a %s booking cannot be cancelled", b.Status))
	}
	return nil
}

// SetStatus is the admin status change. Cancelling goes through the same
// refund path as a user cancellation.
func (s *Service) SetStatus(ctx context.Context, id string, to models.BookingStatus) (*models.Booking, error) {
	if !to.Valid() {
		return nil, utils.Errorf(utils.ErrBadRequest, "unknown status "+string(to))
	}
	b, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if to == models.BookingCancelled {
		return s.cancel(ctx, b)
	}
	if !models.CanTransition(b.Status, to) {
		return nil, utils.Errorf(utils.ErrInvalidTransition,
			fmt.Sprintf("cannot move a booking from %s to %s", b.Status, to))
	}

	out, err := s.store.Update(ctx, id, Cond{Statuses: []models.BookingStatus{b.Status}}, Patch{Status: &to})
	if err != nil {
		return nil, err
	}
	log.Info().Str("booking", id).Str("from", string(b.Status)).Str("to", string(to)).Msg("[Bookings] status changed")
	s.emit(ctx, models.StatusEvent(to), out)
	return out, nil
}

// MarkPaid records a captured payment and confirms the booking. Replaying
// the same payment is a no-op that returns the booking with changed false.
func (s *Service) MarkPaid(ctx context.Context, id, paymentID string) (b *models.Booking, changed bool, err error) {
	completed, confirmed := models.PaymentCompleted, models.BookingConfirmed
	b, err = s.store.Update(ctx, id,
		Cond{
			Statuses:        []models.BookingStatus{models.BookingPending},
			PaymentStatuses: []models.PaymentStatus{models.PaymentPending, models.PaymentFailed},
		},
		Patch{Status: &confirmed, PaymentStatus: &completed, PaymentID: &paymentID})
	if err == nil {
		log.Info().Str("booking", id).Str("payment", paymentID).Msg("[Bookings] payment captured")
		s.emit(ctx, models.EventPaymentCompleted, b)
		return b, true, nil
	}
	if !isInvalidTransition(err) {
		return nil, false, err
	}
	cur, gerr := s.store.ByID(ctx, id)
	if gerr != nil {
		return nil, false, gerr
	}
	if cur.PaymentStatus == models.PaymentCompleted && cur.PaymentID == paymentID {
		return cur, false, nil
	}
	return nil, false, err
}

// MarkPaymentFailed flags a failed attempt. Captured or refunded payments
// are never downgraded.
func (s *Service) MarkPaymentFailed(ctx context.Context, id string) (*models.Booking, error) {
	failed := models.PaymentFailed
	b, err := s.store.Update(ctx, id,
		Cond{PaymentStatuses: []models.PaymentStatus{models.PaymentPending, models.PaymentFailed}},
		Patch{PaymentStatus: &failed})
	if err != nil {
		return nil, err
	}
	log.Warn().Str("booking", id).Msg("[Bookings] payment failed")
	s.emit(ctx, models.EventPaymentFailed, b)
	return b, nil
}

// MarkRefunded records a refund confirmed by the gateway. Already refunded
// bookings are returned unchanged.
func (s *Service) MarkRefunded(ctx context.Context, id string) (*models.Booking, error) {
	refunded := models.PaymentRefunded
	b, err := s.store.Update(ctx, id,
		Cond{PaymentStatuses: []models.PaymentStatus{models.PaymentCompleted}},
		Patch{PaymentStatus: &refunded})
	if isInvalidTransition(err) {
		cur, gerr := s.store.ByID(ctx, id)
		if gerr == nil && cur.PaymentStatus == models.PaymentRefunded {
			return cur, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("booking", id).Msg("[Bookings] payment refunded")
	s.emit(ctx, models.EventPaymentRefunded, b)
	return b, nil
}

// AttachPackages fills the package summary of each booking in one query.
func (s *Service) AttachPackages(ctx context.Context, list []*models.Booking) error {
	if len(list) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var ids []string
	for _, b := range list {
		if !seen[b.PackageID] {
			seen[b.PackageID] = true
			ids = append(ids, b.PackageID)
		}
	}
	sums, err := s.packages.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, b := range list {
		if p, ok := sums[b.PackageID]; ok {
			b.Package = &p
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, typ string, b *models.Booking) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, models.BookingEvent{ID: utils.NewID(), Type: typ, Booking: *b, At: nowUTC()})
}

func summaryOf(p *models.Package) *models.PackageSummary {
	return &models.PackageSummary{
		ID:       p.ID,
		Title:    p.Title,
		Slug:     p.Slug,
		Location: p.Location,
		Duration: p.Duration,
		Images:   p.Images,
	}
}

func isInvalidTransition(err error) bool {
	return errors.Is(err, utils.ErrInvalidTransition)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
