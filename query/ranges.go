package query

import (
	"regexp"
	"strconv"
	"strings"
)

// Range is an inclusive numeric interval. A nil Max leaves it unbounded above.
type Range struct {
	Min float64
	Max *float64
}

// Contains reports whether v lies in r.
func (r Range) Contains(v float64) bool {
	if v < r.Min {
		return false
	}
	return r.Max == nil || v <= *r.Max
}

var (
	boundedRange = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)(?:\s*[A-Za-z][A-Za-z ]*)?$`)
	openRange    = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*\+(?:\s*[A-Za-z][A-Za-z ]*)?$`)

	// currency marks and thousands separators carried by UI price labels
	rangeNoise = strings.NewReplacer("$", "", "€", "", "£", "", "₹", "", ",", "")
)

// ParseRange reads "<min>-<max> <unit>" or "<min>+ <unit>". The unit is
// optional so price labels such as "$0-$500" and "$2,000+" parse too.
// Bounds are taken as written; min > max yields a range nothing falls in.
func ParseRange(s string) (Range, bool) {
	s = strings.TrimSpace(rangeNoise.Replace(s))
	if m := boundedRange.FindStringSubmatch(s); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return Range{}, false
		}
		return Range{Min: lo, Max: &hi}, true
	}
	if m := openRange.FindStringSubmatch(s); m != nil {
		lo, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Range{}, false
		}
		return Range{Min: lo}, true
	}
	return Range{}, false
}
