package query

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MonthlyStat is the booking count and revenue for one calendar month.
type MonthlyStat struct {
	Month   int     `json:"month" bson:"_id"`
	Count   int64   `json:"count" bson:"count"`
	Revenue float64 `json:"revenue" bson:"revenue"`
}

// MonthlyPipeline groups bookings created in year by month of createdAt,
// counting them and summing totalAmount. Months are UTC.
func MonthlyPipeline(year int) mongo.Pipeline {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": from, "$lt": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     bson.M{"$month": "$createdAt"},
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$totalAmount"},
		}}},
	}
}

// FillMonths returns exactly twelve entries, January first. Months missing
// from raw are zero; entries outside 1..12 are dropped and duplicates summed.
func FillMonths(raw []MonthlyStat) []MonthlyStat {
	out := make([]MonthlyStat, 12)
	for i := range out {
		out[i].Month = i + 1
	}
	for _, s := range raw {
		if s.Month < 1 || s.Month > 12 {
			continue
		}
		out[s.Month-1].Count += s.Count
		out[s.Month-1].Revenue += s.Revenue
	}
	return out
}

// ParseYear reads a four-digit year, falling back to now's year.
func ParseYear(s string, now time.Time) int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < 1970 || y > 9999 {
		return now.Year()
	}
	return y
}
