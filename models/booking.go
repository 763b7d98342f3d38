package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

var BookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted}

func (s BookingStatus) Valid() bool {
	for _, v := range BookingStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	if !to.Valid() || from == to || from.Terminal() {
		return false
	}
	switch from {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingCompleted || to == BookingCancelled
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded}

func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type ContactInfo struct {
	Name  string `json:"name" bson:"name" validate:"required"`
	Email string `json:"email" bson:"email" validate:"required,email"`
	Phone string `json:"phone" bson:"phone" validate:"required,min=5,max=32"`
}

// Booking belongs to exactly one user and one package.
type Booking struct {
	ID              string          `json:"id" bson:"_id"`
	UserID          string          `json:"userId" bson:"userId"`
	PackageID       string          `json:"packageId" bson:"packageId"`
	StartDate       time.Time       `json:"startDate" bson:"startDate"`
	NumberOfPeople  int             `json:"numberOfPeople" bson:"numberOfPeople"`
	TotalAmount     float64         `json:"totalAmount" bson:"totalAmount"`
	Status          BookingStatus   `json:"status" bson:"status"`
	PaymentID       string          `json:"paymentId,omitempty" bson:"paymentId,omitempty"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" bson:"paymentStatus"`
	ContactInfo     ContactInfo     `json:"contactInfo" bson:"contactInfo"`
	SpecialRequests string          `json:"specialRequests,omitempty" bson:"specialRequests,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
	Package         *PackageSummary `json:"package,omitempty" bson:"-"`
}

// BookingInput is what a user posts to create a booking.
type BookingInput struct {
	PackageID       string      `json:"packageId" validate:"required"`
	StartDate       time.Time   `json:"startDate" validate:"required"`
	NumberOfPeople  int         `json:"numberOfPeople" validate:"gte=1"`
	ContactInfo     ContactInfo `json:"contactInfo"`
	SpecialRequests string      `json:"specialRequests" validate:"max=2000"`
}
