package pay

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

// Store keeps one payment record per gateway order.
type Store interface {
	Insert(ctx context.Context, p *models.Payment) error
	ByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	ByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error)
	SetState(ctx context.Context, orderID, state, paymentID string) error
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Insert(ctx context.Context, p *models.Payment) error {
	_, err := s.coll.InsertOne(ctx, p)
	if db.IsDuplicateKey(err) {
		return utils.Errorf(utils.ErrConflict, "order already recorded")
	}
	return err
}

func (s *MongoStore) one(ctx context.Context, filter bson.M) (*models.Payment, error) {
	var p models.Payment
	err := s.coll.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(&p)
	if db.IsNoDocuments(err) {
		return nil, utils.Errorf(utils.ErrNotFound, "payment not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) ByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	return s.one(ctx, bson.M{"orderId": orderID})
}

func (s *MongoStore) ByPaymentID(ctx context.Context, paymentID string) (*models.Payment, error) {
	return s.one(ctx, bson.M{"paymentId": paymentID})
}

func (s *MongoStore) SetState(ctx context.Context, orderID, state, paymentID string) error {
	set := bson.M{"state": state, "updatedAt": time.Now().UTC()}
	if paymentID != "" {
		set["paymentId"] = paymentID
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"orderId": orderID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.Errorf(utils.ErrNotFound, "payment not found")
	}
	return nil
}
