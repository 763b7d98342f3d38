package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Direction is a sort direction in Mongo's 1 / -1 form.
type Direction int

const (
	Asc  Direction = 1
	Desc Direction = -1
)

// SortField orders by one document field.
type SortField struct {
	Field string
	Dir   Direction
}

// Ordering is applied field by field, first entry most significant.
type Ordering []SortField

// Compare orders two decoded documents the way storage would: negative when
// a sorts before b. Missing fields compare equal.
func (o Ordering) Compare(a, b Doc) int {
	for _, f := range o {
		c := compareValues(lookup(a, f.Field), lookup(b, f.Field))
		if c == 0 {
			continue
		}
		if f.Dir == Desc {
			return -c
		}
		return c
	}
	return 0
}

func (o Ordering) BSON() bson.D {
	d := make(bson.D, 0, len(o))
	for _, f := range o {
		d = append(d, bson.E{Key: f.Field, Value: int(f.Dir)})
	}
	return d
}

// Package listing sort keys.
const (
	SortPriceLowHigh = "price-low-high"
	SortPriceHighLow = "price-high-low"
	SortNewest       = "newest"
	SortPopular      = "popular"
)

var packageSorts = map[string]Ordering{
	SortPriceLowHigh: {{Field: "price", Dir: Asc}},
	SortPriceHighLow: {{Field: "price", Dir: Desc}},
	SortNewest:       {{Field: "createdAt", Dir: Desc}},
	SortPopular:      {{Field: "featured", Dir: Desc}, {Field: "price", Dir: Asc}},
}

// PackageSort resolves a named package sort; unknown keys mean "popular".
func PackageSort(key string) Ordering {
	if o, ok := packageSorts[strings.TrimSpace(key)]; ok {
		return o
	}
	return packageSorts[SortPopular]
}

// FieldSort orders by a single field: createdAt descending, anything else
// ascending. Fields outside allowed fall back to def.
func FieldSort(field string, allowed []string, def string) Ordering {
	field = strings.TrimSpace(field)
	ok := false
	for _, a := range allowed {
		if a == field {
			ok = true
			break
		}
	}
	if !ok {
		field = def
	}
	dir := Asc
	if field == "createdAt" {
		dir = Desc
	}
	return Ordering{{Field: field, Dir: dir}}
}
