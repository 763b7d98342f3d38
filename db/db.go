package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wanderlust/config"
)

var (
	PackagesCollection    *mongo.Collection
	BookingsCollection    *mongo.Collection
	UsersCollection       *mongo.Collection
	HomeCollection        *mongo.Collection
	PaymentsCollection    *mongo.Collection
	IdempotencyCollection *mongo.Collection
	Client                *mongo.Client
)

// Connect dials MongoDB, pings it and binds the collection handles.
func Connect(ctx context.Context, cfg config.MongoConfig) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	Client = client
	database := client.Database(cfg.Database)
	PackagesCollection = database.Collection("packages")
	BookingsCollection = database.Collection("bookings")
	UsersCollection = database.Collection("users")
	HomeCollection = database.Collection("home")
	PaymentsCollection = database.Collection("payments")
	IdempotencyCollection = database.Collection("idempotency")

	log.Info().Str("db", cfg.Database).Msg("[DB] connected")
	return nil
}

func Disconnect(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	return Client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the handlers rely on. Safe to rerun.
func EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		PackagesCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_slug")},
			{Keys: bson.D{{Key: "featured", Value: -1}, {Key: "price", Value: 1}}, Options: options.Index().SetName("popular")},
			{Keys: bson.D{{Key: "location", Value: 1}}},
		},
		BookingsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("user_recent")},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "externalId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_external_id")},
		},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_order")},
			{Keys: bson.D{{Key: "bookingId", Value: 1}}},
			{Keys: bson.D{{Key: "paymentId", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		IdempotencyCollection: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_key")},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		},
	}
	for coll, idxs := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, idxs); err != nil {
			return fmt.Errorf("indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// IsDuplicateKey reports a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsNoDocuments reports a FindOne miss.
func IsNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
