package db

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wanderlust/query"
)

// Source runs query predicates against one collection, decoding into T.
type Source[T any] struct {
	Coll *mongo.Collection
	// Scope is ANDed onto every predicate, e.g. restricting to one user.
	Scope query.Predicate
	// Projection limits the returned fields when set.
	Projection any
}

func NewSource[T any](coll *mongo.Collection) Source[T] {
	return Source[T]{Coll: coll}
}

func (s Source[T]) filter(p query.Predicate) any {
	return s.Scope.And(p.Clauses()...).BSON()
}

func (s Source[T]) Count(ctx context.Context, p query.Predicate) (int64, error) {
	return s.Coll.CountDocuments(ctx, s.filter(p))
}

func (s Source[T]) Find(ctx context.Context, p query.Predicate, o query.Ordering, skip, limit int64) ([]T, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit)
	if len(o) > 0 {
		opts.SetSort(o.BSON())
	}
	if s.Projection != nil {
		opts.SetProjection(s.Projection)
	}
	return FindAndDecode[T](ctx, s.Coll, s.filter(p), opts)
}

// FindAndDecode runs Find and decodes every document. The result is never nil.
func FindAndDecode[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
