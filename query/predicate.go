// Package query turns listing parameters into storage-independent predicates,
// orderings and page bounds, and post-processes dashboard aggregates.
//
// Nothing here performs I/O. Malformed input never produces an error: it
// degrades to "no constraint", the default ordering, or zero.
package query

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Doc is a decoded document. Nested documents may be bson.M, bson.D or
// map[string]any; fields are addressed with dotted paths.
type Doc = bson.M

// Clause is one constraint of a predicate.
type Clause interface {
	bson() bson.M
	matches(d Doc) bool
}

// Predicate is a conjunction of clauses. The zero value matches every record.
type Predicate struct {
	clauses []Clause
}

// And returns a copy of p with the extra clauses appended.
func (p Predicate) And(cs ...Clause) Predicate {
	out := make([]Clause, 0, len(p.clauses)+len(cs))
	out = append(out, p.clauses...)
	for _, c := range cs {
		if c != nil {
			out = append(out, c)
		}
	}
	return Predicate{clauses: out}
}

// IsEmpty reports whether p constrains nothing.
func (p Predicate) IsEmpty() bool {
	return len(p.clauses) == 0
}

// Len is the number of clauses.
func (p Predicate) Len() int {
	return len(p.clauses)
}

// Clauses returns the clauses of p, for combining with another scope.
func (p Predicate) Clauses() []Clause {
	return p.clauses
}

// BSON renders p as a Mongo filter. An empty predicate renders as an empty,
// non-nil document.
func (p Predicate) BSON() bson.M {
	out := bson.M{}
	var parts []bson.M
	collided := false
	for _, c := range p.clauses {
		m := c.bson()
		parts = append(parts, m)
		for k, v := range m {
			if _, dup := out[k]; dup {
				collided = true
			}
			out[k] = v
		}
	}
	if collided {
		and := make(bson.A, 0, len(parts))
		for _, m := range parts {
			and = append(and, m)
		}
		return bson.M{"$and": and}
	}
	return out
}

// Matches evaluates p against a decoded document.
func (p Predicate) Matches(d Doc) bool {
	for _, c := range p.clauses {
		if !c.matches(d) {
			return false
		}
	}
	return true
}

// DocOf decodes any bson-marshalable value into a Doc.
func DocOf(v any) (Doc, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d Doc
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// ---------- clauses ----------

type containsClause struct {
	term   string
	fields []string
}

// Contains matches when any of the fields contains term, ignoring case.
// A blank term yields no clause.
func Contains(term string, fields ...string) Clause {
	term = strings.TrimSpace(term)
	if term == "" || len(fields) == 0 {
		return nil
	}
	return containsClause{term: term, fields: fields}
}

func (c containsClause) bson() bson.M {
	pattern := regexp.QuoteMeta(c.term)
	or := make(bson.A, 0, len(c.fields))
	for _, f := range c.fields {
		or = append(or, bson.M{f: primitive.Regex{Pattern: pattern, Options: "i"}})
	}
	return bson.M{"$or": or}
}

func (c containsClause) matches(d Doc) bool {
	needle := strings.ToLower(c.term)
	for _, f := range c.fields {
		if s, ok := lookup(d, f).(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

type equalsClause struct {
	field string
	value any
}

// Eq matches when field equals value exactly.
func Eq(field string, value any) Clause {
	return equalsClause{field: field, value: value}
}

func (c equalsClause) bson() bson.M {
	return bson.M{c.field: c.value}
}

func (c equalsClause) matches(d Doc) bool {
	got := lookup(d, c.field)
	if a, ok := toFloat(got); ok {
		b, ok := toFloat(c.value)
		return ok && a == b
	}
	switch want := c.value.(type) {
	case string:
		s, ok := got.(string)
		return ok && s == want
	case bool:
		b, ok := got.(bool)
		return ok && b == want
	}
	return got == c.value
}

type rangeClause struct {
	field string
	r     Range
}

// Within matches numeric fields inside r, both ends inclusive.
func Within(field string, r Range) Clause {
	return rangeClause{field: field, r: r}
}

func (c rangeClause) bson() bson.M {
	cond := bson.M{"$gte": c.r.Min}
	if c.r.Max != nil {
		cond["$lte"] = *c.r.Max
	}
	return bson.M{c.field: cond}
}

func (c rangeClause) matches(d Doc) bool {
	v, ok := toFloat(lookup(d, c.field))
	return ok && c.r.Contains(v)
}

// ---------- document access ----------

func lookup(d Doc, path string) any {
	var cur any = d
	for _, key := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case bson.M:
			cur = m[key]
		case map[string]any:
			cur = m[key]
		case bson.D:
			cur = nil
			for _, e := range m {
				if e.Key == key {
					cur = e.Value
					break
				}
			}
		default:
			return nil
		}
	}
	return cur
}

func compareValues(a, b any) int {
	if x, ok := toFloat(a); ok {
		y, _ := toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	switch x := a.(type) {
	case string:
		y, _ := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case bool:
		y, _ := b.(bool)
		switch {
		case !x && y:
			return -1
		case x && !y:
			return 1
		}
	case time.Time:
		y, _ := b.(time.Time)
		return x.Compare(y)
	case primitive.DateTime:
		y, _ := b.(primitive.DateTime)
		return compareValues(int64(x), int64(y))
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
