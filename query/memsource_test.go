package query

import (
	"context"
	"sort"
)

// memSource evaluates predicates in memory over decoded documents.
type memSource struct {
	docs []Doc
}

func (m memSource) matching(p Predicate) []Doc {
	var out []Doc
	for _, d := range m.docs {
		if p.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

func (m memSource) Count(_ context.Context, p Predicate) (int64, error) {
	return int64(len(m.matching(p))), nil
}

func (m memSource) Find(_ context.Context, p Predicate, o Ordering, skip, limit int64) ([]Doc, error) {
	docs := m.matching(p)
	sort.SliceStable(docs, func(i, j int) bool {
		return o.Compare(docs[i], docs[j]) < 0
	})
	if skip >= int64(len(docs)) {
		return nil, nil
	}
	end := skip + limit
	if end > int64(len(docs)) {
		end = int64(len(docs))
	}
	return docs[skip:end], nil
}
