package models

import "time"

// Package is a bookable travel package.
type Package struct {
	ID               string         `json:"id" bson:"_id"`
	Title            string         `json:"title" bson:"title"`
	Slug             string         `json:"slug" bson:"slug"`
	Description      string         `json:"description" bson:"description"`
	ShortDescription string         `json:"shortDescription" bson:"shortDescription"`
	Duration         int            `json:"duration" bson:"duration"` // days
	Location         string         `json:"location" bson:"location"`
	Price            float64        `json:"price" bson:"price"`
	DiscountedPrice  *float64       `json:"discountedPrice,omitempty" bson:"discountedPrice,omitempty"`
	Images           []string       `json:"images" bson:"images"`
	Inclusions       []string       `json:"inclusions" bson:"inclusions"`
	Exclusions       []string       `json:"exclusions" bson:"exclusions"`
	Itinerary        []ItineraryDay `json:"itinerary" bson:"itinerary"`
	Featured         bool           `json:"featured" bson:"featured"`
	MaxGroupSize     int            `json:"maxGroupSize" bson:"maxGroupSize"`
	CreatedAt        time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// EffectivePrice is the per-person price a booking is charged.
func (p Package) EffectivePrice() float64 {
	if p.DiscountedPrice != nil {
		return *p.DiscountedPrice
	}
	return p.Price
}

// Normalize replaces nil slices so responses always carry arrays.
func (p *Package) Normalize() {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Inclusions == nil {
		p.Inclusions = []string{}
	}
	if p.Exclusions == nil {
		p.Exclusions = []string{}
	}
	if p.Itinerary == nil {
		p.Itinerary = []ItineraryDay{}
	}
}

// PackageInput is the admin create/update payload.
type PackageInput struct {
	Title            string         `json:"title" validate:"required,max=200"`
	Description      string         `json:"description" validate:"required"`
	ShortDescription string         `json:"shortDescription" validate:"max=500"`
	Duration         int            `json:"duration" validate:"gte=1"`
	Location         string         `json:"location" validate:"required"`
	Price            float64        `json:"price" validate:"gte=0"`
	DiscountedPrice  *float64       `json:"discountedPrice" validate:"omitempty,gte=0"`
	Images           []string       `json:"images" validate:"omitempty,dive,url"`
	Inclusions       []string       `json:"inclusions"`
	Exclusions       []string       `json:"exclusions"`
	Itinerary        []ItineraryDay `json:"itinerary" validate:"dive"`
	Featured         bool           `json:"featured"`
	MaxGroupSize     int            `json:"maxGroupSize" validate:"gte=0"`
}

// PackageSummary is the slice of a package embedded in booking responses.
type PackageSummary struct {
	ID       string   `json:"id" bson:"_id"`
	Title    string   `json:"title" bson:"title"`
	Slug     string   `json:"slug" bson:"slug"`
	Location string   `json:"location" bson:"location"`
	Duration int      `json:"duration" bson:"duration"`
	Images   []string `json:"images" bson:"images"`
}
