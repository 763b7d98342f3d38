package users

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wanderlust/db"
	"wanderlust/models"
	"wanderlust/query"
	"wanderlust/utils"
)

// Profile is what a sign-in carries over from the identity provider. Empty
// fields leave the stored value alone.
type Profile struct {
	Email        string
	Name         string
	Phone        string
	ProfileImage string
}

type Store interface {
	query.Source[models.User]
	ByID(ctx context.Context, id string) (*models.User, error)
	ByExternalID(ctx context.Context, externalID string) (*models.User, error)
	// Upsert creates the user on first sign-in with role "user" and
	// refreshes the profile and lastLogin afterwards.
	Upsert(ctx context.Context, externalID string, p Profile, now time.Time) (u *models.User, created bool, err error)
	SetRole(ctx context.Context, id, role string) (*models.User, error)
}

type MongoStore struct {
	db.Source[models.User]
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{Source: db.NewSource[models.User](coll)}
}

func (s *MongoStore) one(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := s.Coll.FindOne(ctx, filter).Decode(&u)
	if db.IsNoDocuments(err) {
		return nil, utils.Errorf(utils.ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) ByID(ctx context.Context, id string) (*models.User, error) {
	return s.one(ctx, bson.M{"_id": id})
}

func (s *MongoStore) ByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return s.one(ctx, bson.M{"externalId": externalID})
}

func (s *MongoStore) Upsert(ctx context.Context, externalID string, p Profile, now time.Time) (*models.User, bool, error) {
	now = now.UTC().Truncate(time.Millisecond)
	set := bson.M{"lastLogin": now, "updatedAt": now}
	for field, v := range map[string]string{"email": p.Email, "name": p.Name, "phone": p.Phone, "profileImage": p.ProfileImage} {
		if v != "" {
			set[field] = v
		}
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       utils.NewID(),
			"role":      models.RoleUser,
			"createdAt": now,
		},
	}

	var u models.User
	err := s.Coll.FindOneAndUpdate(ctx, bson.M{"externalId": externalID}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		return nil, false, err
	}
	return &u, u.CreatedAt.Equal(now), nil
}

func (s *MongoStore) SetRole(ctx context.Context, id, role string) (*models.User, error) {
	var u models.User
	err := s.Coll.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if db.IsNoDocuments(err) {
		return nil, utils.Errorf(utils.ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
