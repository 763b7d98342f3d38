package models

import "time"

// HomeSection is one editable block of the public home page, keyed by name.
type HomeSection struct {
	Section   string           `json:"section" bson:"_id"`
	Title     string           `json:"title" bson:"title"`
	Subtitle  string           `json:"subtitle,omitempty" bson:"subtitle,omitempty"`
	Body      string           `json:"body,omitempty" bson:"body,omitempty"`
	Images    []string         `json:"images,omitempty" bson:"images,omitempty"`
	Items     []map[string]any `json:"items,omitempty" bson:"items,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// HomeSectionInput is the admin payload for a section.
type HomeSectionInput struct {
	Title    string           `json:"title" validate:"required,max=200"`
	Subtitle string           `json:"subtitle" validate:"max=500"`
	Body     string           `json:"body"`
	Images   []string         `json:"images" validate:"omitempty,dive,url"`
	Items    []map[string]any `json:"items"`
}
