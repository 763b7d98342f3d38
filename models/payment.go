package models

import "time"

const (
	PaymentRecordCreated  = "created"
	PaymentRecordCaptured = "captured"
	PaymentRecordFailed   = "failed"
	PaymentRecordRefunded = "refunded"
)

// Payment records one gateway order raised for a booking.
type Payment struct {
	ID        string    `bson:"_id" json:"id"`
	BookingID string    `bson:"bookingId" json:"bookingId"`
	UserID    string    `bson:"userId" json:"userId"`
	OrderID   string    `bson:"orderId" json:"orderId"`
	PaymentID string    `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	Amount    float64   `bson:"amount" json:"amount"`
	Currency  string    `bson:"currency" json:"currency"`
	State     string    `bson:"state" json:"state"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IdempotencyRecord reserves an Idempotency-Key and, once the first request
// finishes, holds its response for replay.
type IdempotencyRecord struct {
	Key         string               `bson:"key" json:"key"`
	Method      string               `bson:"method" json:"method"`
	Path        string               `bson:"path" json:"path"`
	UserID      string               `bson:"userid" json:"userid"`
	RequestHash string               `bson:"request_hash" json:"request_hash"`
	Response    *IdempotencyResponse `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time            `bson:"expires_at" json:"expires_at"`
}

type IdempotencyResponse struct {
	Status int    `bson:"status" json:"status"`
	Body   []byte `bson:"body" json:"body"`
}
