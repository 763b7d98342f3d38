package models

import "time"

// Booking event types published on every status or payment change.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)

// BookingEvent is the message carried on the booking events channel.
type BookingEvent struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Booking Booking   `json:"booking"`
	At      time.Time `json:"at"`
}

// StatusEvent names the event for a move into status s.
func StatusEvent(s BookingStatus) string {
	switch s {
	case BookingConfirmed:
		return EventBookingConfirmed
	case BookingCancelled:
		return EventBookingCancelled
	case BookingCompleted:
		return EventBookingCompleted
	}
	return EventBookingCreated
}
