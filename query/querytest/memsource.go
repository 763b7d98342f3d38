// Package querytest provides an in-memory query.Source for handler tests.
package querytest

import (
	"context"
	"sort"
	"sync"

	"wanderlust/query"
)

// MemSource holds items in memory and evaluates predicates and orderings on
// their BSON form, the same field names the Mongo source sees.
type MemSource[T any] struct {
	mu    sync.Mutex
	Items []T
}

func New[T any](items ...T) *MemSource[T] {
	return &MemSource[T]{Items: items}
}

type entry[T any] struct {
	item T
	doc  query.Doc
}

func (m *MemSource[T]) matching(p query.Predicate) ([]entry[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entry[T]
	for _, it := range m.Items {
		d, err := query.DocOf(it)
		if err != nil {
			return nil, err
		}
		if p.Matches(d) {
			out = append(out, entry[T]{item: it, doc: d})
		}
	}
	return out, nil
}

func (m *MemSource[T]) Count(_ context.Context, p query.Predicate) (int64, error) {
	es, err := m.matching(p)
	return int64(len(es)), err
}

func (m *MemSource[T]) Find(_ context.Context, p query.Predicate, o query.Ordering, skip, limit int64) ([]T, error) {
	es, err := m.matching(p)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(es, func(i, j int) bool { return o.Compare(es[i].doc, es[j].doc) < 0 })

	out := []T{}
	for i := skip; i < int64(len(es)) && i < skip+limit; i++ {
		out = append(out, es[i].item)
	}
	return out, nil
}

// Update applies fn to every item under the lock.
func (m *MemSource[T]) Update(fn func(items []T) []T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items = fn(m.Items)
}

// Snapshot copies the items under the lock.
func (m *MemSource[T]) Snapshot() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T(nil), m.Items...)
}
