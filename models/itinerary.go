package models

// ItineraryDay is one entry of a package's day-by-day schedule.
type ItineraryDay struct {
	Day         int    `json:"day" bson:"day" validate:"gte=1"`
	Title       string `json:"title" bson:"title" validate:"required"`
	Description string `json:"description" bson:"description"`
	// optional, points at the image host
	Image string `json:"image,omitempty" bson:"image,omitempty"`
}
