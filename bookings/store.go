package bookings

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wanderlust/db"
	"wanderlust/models"
	"wanderlust/query"
	"wanderlust/utils"
)

// Cond restricts an update to bookings currently in one of the listed
// states. Empty lists place no restriction.
type Cond struct {
	Statuses        []models.BookingStatus
	PaymentStatuses []models.PaymentStatus
}

// Patch lists the fields an update sets; nil fields are left alone.
type Patch struct {
	Status        *models.BookingStatus
	PaymentStatus *models.PaymentStatus
	PaymentID     *string
}

type Store interface {
	query.Source[models.Booking]
	ForUser(userID string) query.Source[models.Booking]
	Insert(ctx context.Context, b *models.Booking) error
	ByID(ctx context.Context, id string) (*models.Booking, error)
	// Update applies p when the booking still satisfies c and returns the
	// result. A booking that exists but fails c yields ErrInvalidTransition.
	Update(ctx context.Context, id string, c Cond, p Patch) (*models.Booking, error)
}

// PackageLookup is the slice of the package store bookings depend on.
type PackageLookup interface {
	ByID(ctx context.Context, id string) (*models.Package, error)
	Summaries(ctx context.Context, ids []string) (map[string]models.PackageSummary, error)
}

type MongoStore struct {
	db.Source[models.Booking]
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{Source: db.NewSource[models.Booking](coll)}
}

func (s *MongoStore) ForUser(userID string) query.Source[models.Booking] {
	src := s.Source
	src.Scope = query.Predicate{}.And(query.Eq("userId", userID))
	return src
}

func (s *MongoStore) Insert(ctx context.Context, b *models.Booking) error {
	_, err := s.Coll.InsertOne(ctx, b)
	return err
}

func (s *MongoStore) ByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := s.Coll.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if db.IsNoDocuments(err) {
		return nil, utils.Errorf(utils.ErrNotFound, "booking not found")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, c Cond, p Patch) (*models.Booking, error) {
	filter := bson.M{"_id": id}
	if len(c.Statuses) > 0 {
		filter["status"] = bson.M{"$in": c.Statuses}
	}
	if len(c.PaymentStatuses) > 0 {
		filter["paymentStatus"] = bson.M{"$in": c.PaymentStatuses}
	}

	set := bson.M{"updatedAt": nowUTC()}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.PaymentStatus != nil {
		set["paymentStatus"] = *p.PaymentStatus
	}
	if p.PaymentID != nil {
		set["paymentId"] = *p.PaymentID
	}

	var out models.Booking
	err := s.Coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if db.IsNoDocuments(err) {
		if _, err := s.ByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, utils.Errorf(utils.ErrInvalidTransition, "booking is not in a state that allows this change")
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Monthly runs the per-month booking aggregation for one calendar year.
// The result is not gap filled.
func (s *MongoStore) Monthly(ctx context.Context, year int) ([]query.MonthlyStat, error) {
	cur, err := s.Coll.Aggregate(ctx, query.MonthlyPipeline(year))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []query.MonthlyStat
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
