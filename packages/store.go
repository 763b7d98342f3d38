package packages

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wanderlust/db"
	"wanderlust/models"
	"wanderlust/query"
	"wanderlust/utils"
)

// Store is the package persistence the handlers need.
type Store interface {
	query.Source[models.Package]
	Featured(ctx context.Context, limit int64) ([]models.Package, error)
	Locations(ctx context.Context) ([]string, error)
	BySlug(ctx context.Context, slug string) (*models.Package, error)
	ByID(ctx context.Context, id string) (*models.Package, error)
	// SlugTaken ignores the package with id exceptID.
	SlugTaken(ctx context.Context, slug, exceptID string) (bool, error)
	Insert(ctx context.Context, p *models.Package) error
	Replace(ctx context.Context, p *models.Package) error
	Delete(ctx context.Context, id string) error
	Summaries(ctx context.Context, ids []string) (map[string]models.PackageSummary, error)
}

type MongoStore struct {
	db.Source[models.Package]
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{Source: db.NewSource[models.Package](coll)}
}

func (s *MongoStore) Featured(ctx context.Context, limit int64) ([]models.Package, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	return db.FindAndDecode[models.Package](ctx, s.Coll, bson.M{"featured": true}, opts)
}

func (s *MongoStore) Locations(ctx context.Context) ([]string, error) {
	raw, err := s.Coll.Distinct(ctx, "location", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if loc, ok := v.(string); ok && loc != "" {
			out = append(out, loc)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MongoStore) one(ctx context.Context, filter bson.M) (*models.Package, error) {
	var p models.Package
	err := s.Coll.FindOne(ctx, filter).Decode(&p)
	if db.IsNoDocuments(err) {
		return nil, utils.Errorf(utils.ErrNotFound, "package not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) BySlug(ctx context.Context, slug string) (*models.Package, error) {
	return s.one(ctx, bson.M{"slug": slug})
}

func (s *MongoStore) ByID(ctx context.Context, id string) (*models.Package, error) {
	return s.one(ctx, bson.M{"_id": id})
}

func (s *MongoStore) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	filter := bson.M{"slug": slug}
	if exceptID != "" {
		filter["_id"] = bson.M{"$ne": exceptID}
	}
	n, err := s.Coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *MongoStore) Insert(ctx context.Context, p *models.Package) error {
	_, err := s.Coll.InsertOne(ctx, p)
	if db.IsDuplicateKey(err) {
		return utils.Errorf(utils.ErrConflict, "slug already in use")
	}
	return err
}

func (s *MongoStore) Replace(ctx context.Context, p *models.Package) error {
	res, err := s.Coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if db.IsDuplicateKey(err) {
		return utils.Errorf(utils.ErrConflict, "slug already in use")
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.Errorf(utils.ErrNotFound, "package not found")
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.Coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return utils.Errorf(utils.ErrNotFound, "package not found")
	}
	return nil
}

func (s *MongoStore) Summaries(ctx context.Context, ids []string) (map[string]models.PackageSummary, error) {
	out := make(map[string]models.PackageSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"title": 1, "slug": 1, "location": 1, "duration": 1, "images": 1})
	list, err := db.FindAndDecode[models.PackageSummary](ctx, s.Coll, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("package summaries: %w", err)
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}
