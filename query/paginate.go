package query

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int64
	Limit  int64
}

// Skip is the number of matches before this page.
func (p Page) Skip() int64 {
	return (p.Number - 1) * p.Limit
}

// ParsePage reads page and limit. Missing, non-numeric or values below 1
// fall back to page 1 and the default limit; limit is capped at MaxLimit.
func ParsePage(q url.Values) Page {
	return ParsePageWithLimit(q, DefaultLimit)
}

// ParsePageWithLimit is ParsePage with a caller-chosen default limit. page is
// clamped so the skip it implies never overflows.
func ParsePageWithLimit(q url.Values, defLimit int64) Page {
	page, err := strconv.ParseInt(strings.TrimSpace(q.Get("page")), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.ParseInt(strings.TrimSpace(q.Get("limit")), 10, 64)
	if err != nil || limit < 1 {
		limit = defLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if maxPage := math.MaxInt64 / limit; page > maxPage {
		page = maxPage
	}
	return Page{Number: page, Limit: limit}
}

// Summary describes a bounded slice of a larger matching set.
type Summary struct {
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Pages int64 `json:"pages"`
}

// Summarize computes pages = ceil(total/limit) from the pre-pagination total.
func Summarize(total int64, p Page) Summary {
	s := Summary{Total: total, Page: p.Number, Limit: p.Limit}
	if p.Limit > 0 {
		s.Pages = (total + p.Limit - 1) / p.Limit
	}
	return s
}

// Source executes predicates against a collection of T.
type Source[T any] interface {
	Count(ctx context.Context, p Predicate) (int64, error)
	Find(ctx context.Context, p Predicate, o Ordering, skip, limit int64) ([]T, error)
}

// Result is one page of matches with its summary.
type Result[T any] struct {
	Items   []T     `json:"items"`
	Summary Summary `json:"pagination"`
}

// Run fetches one page and the total for the same predicate concurrently.
func Run[T any](ctx context.Context, src Source[T], p Predicate, o Ordering, pg Page) (Result[T], error) {
	var (
		items []T
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = src.Count(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = src.Find(gctx, p, o, pg.Skip(), pg.Limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	return Result[T]{Items: items, Summary: Summarize(total, pg)}, nil
}
