package home

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wanderlust/db"
	"wanderlust/models"
	"wanderlust/utils"
)

type Store interface {
	All(ctx context.Context) ([]models.HomeSection, error)
	Get(ctx context.Context, section string) (*models.HomeSection, error)
	Put(ctx context.Context, s *models.HomeSection) error
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) All(ctx context.Context) ([]models.HomeSection, error) {
	return db.FindAndDecode[models.HomeSection](ctx, s.coll, bson.M{})
}

func (s *MongoStore) Get(ctx context.Context, section string) (*models.HomeSection, error) {
	var out models.HomeSection
	err := s.coll.FindOne(ctx, bson.M{"_id": section}).Decode(&out)
	if db.IsNoDocuments(err) {
		return nil, utils.Errorf(utils.ErrNotFound, "section not found")
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Put replaces the section document, creating it on first write.
func (s *MongoStore) Put(ctx context.Context, sec *models.HomeSection) error {
	sec.UpdatedAt = time.Now().UTC()
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": sec.Section}, sec, options.Replace().SetUpsert(true))
	return err
}
