package pay

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wanderlust/models"
	"wanderlust/utils"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
)

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// HandleWebhook applies a signed gateway notification. Events for unknown
// orders and event types this service does not track are acknowledged and
// dropped.
func (p *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !VerifyWebhookSignature(p.cfg.WebhookSecret, body, signature) {
		return utils.Errorf(utils.ErrSignatureMismatch, "webhook signature mismatch")
	}
	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return utils.Errorf(utils.ErrBadRequest, "invalid webhook payload")
	}

	payment := ev.Payload.Payment.Entity
	logger := log.With().Str("event", ev.Event).Str("payment", payment.ID).Logger()

	switch ev.Event {
	case EventPaymentCaptured:
		rec, err := p.store.ByOrderID(ctx, payment.OrderID)
		if err != nil {
			return ignoreMissing(err, logger, "order", payment.OrderID)
		}
		_, changed, err := p.bookings.MarkPaid(ctx, rec.BookingID, payment.ID)
		if err != nil {
			return ignoreStale(err, logger, rec.BookingID)
		}
		if changed {
			p.setState(ctx, rec.OrderID, models.PaymentRecordCaptured, payment.ID)
		}

	case EventPaymentFailed:
		rec, err := p.store.ByOrderID(ctx, payment.OrderID)
		if err != nil {
			return ignoreMissing(err, logger, "order", payment.OrderID)
		}
		if _, err := p.bookings.MarkPaymentFailed(ctx, rec.BookingID); err != nil {
			return ignoreStale(err, logger, rec.BookingID)
		}
		p.setState(ctx, rec.OrderID, models.PaymentRecordFailed, payment.ID)

	case EventRefundProcessed:
		paymentID := ev.Payload.Refund.Entity.PaymentID
		rec, err := p.store.ByPaymentID(ctx, paymentID)
		if err != nil {
			return ignoreMissing(err, logger, "paymentId", paymentID)
		}
		if _, err := p.bookings.MarkRefunded(ctx, rec.BookingID); err != nil {
			return ignoreStale(err, logger, rec.BookingID)
		}
		p.setState(ctx, rec.OrderID, models.PaymentRecordRefunded, "")

	default:
		logger.Debug().Msg("[Webhook] ignored")
		return nil
	}
	logger.Info().Msg("[Webhook] applied")
	return nil
}

func ignoreMissing(err error, logger zerolog.Logger, key, val string) error {
	if errors.Is(err, utils.ErrNotFound) {
		logger.Warn().Str(key, val).Msg("[Webhook] unknown payment")
		return nil
	}
	return err
}

// ignoreStale drops events that arrive after the booking moved past them.
func ignoreStale(err error, logger zerolog.Logger, bookingID string) error {
	if errors.Is(err, utils.ErrInvalidTransition) {
		logger.Warn().Str("booking", bookingID).Msg("[Webhook] stale event")
		return nil
	}
	return err
}
