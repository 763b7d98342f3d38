package query

import (
	"net/url"
	"strings"

	"wanderlust/models"
)

// Sentinel values meaning "apply no filter on this field".
const (
	AllLocations = "All Locations"
	AnyDuration  = "Any Duration"
	AnyPrice     = "Any Price"
	All          = "all"
)

var (
	PackageSearchFields = []string{"title", "description", "shortDescription"}
	BookingSearchFields = []string{"contactInfo.name", "contactInfo.email", "contactInfo.phone"}
	UserSearchFields    = []string{"name", "email"}
)

// PackageFilter reads search, location, duration, priceRange and featured.
func PackageFilter(q url.Values) Predicate {
	p := Predicate{}.And(Contains(q.Get("search"), PackageSearchFields...))

	if loc := strings.TrimSpace(q.Get("location")); loc != "" && loc != AllLocations && loc != All {
		p = p.And(Eq("location", loc))
	}
	if r, ok := rangeParam(q.Get("duration"), AnyDuration); ok {
		p = p.And(Within("duration", r))
	}
	if r, ok := rangeParam(q.Get("priceRange"), AnyPrice); ok {
		p = p.And(Within("price", r))
	}
	switch strings.TrimSpace(q.Get("featured")) {
	case "true":
		p = p.And(Eq("featured", true))
	case "false":
		p = p.And(Eq("featured", false))
	}
	return p
}

// BookingFilter reads search, status and paymentStatus.
func BookingFilter(q url.Values) Predicate {
	p := Predicate{}.And(Contains(q.Get("search"), BookingSearchFields...))

	if s := models.BookingStatus(strings.TrimSpace(q.Get("status"))); s.Valid() {
		p = p.And(Eq("status", string(s)))
	}
	if s := models.PaymentStatus(strings.TrimSpace(q.Get("paymentStatus"))); s.Valid() {
		p = p.And(Eq("paymentStatus", string(s)))
	}
	return p
}

// UserFilter reads search and role.
func UserFilter(q url.Values) Predicate {
	p := Predicate{}.And(Contains(q.Get("search"), UserSearchFields...))

	if role := strings.TrimSpace(q.Get("role")); models.ValidRole(role) {
		p = p.And(Eq("role", role))
	}
	return p
}

func rangeParam(v, sentinel string) (Range, bool) {
	v = strings.TrimSpace(v)
	if v == "" || v == sentinel {
		return Range{}, false
	}
	return ParseRange(v)
}
