// server/internal/pickup/store.go
package pickup

import (
	"context"
	"fmt"
	"time"

	"waste-pickup-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mean earth radius used to convert meters to radians for $centerSphere.
const earthRadiusMeters = 6378137.0

// MongoStore is the durable pickup record. Claim and Transition are single
// conditional updates keyed on their precondition; with multiple API
// instances against a shared database that conditional write is the only
// concurrency primitive the lifecycle relies on.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("pickups")}
}

// EnsureIndexes creates the geo index backing the available queue and the
// compound index matching its filter and sort.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "geom", Value: "2dsphere"}}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "contaminationScore", Value: -1},
			{Key: "createdAt", Value: 1},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to create pickup indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Insert(ctx context.Context, p *models.Pickup) (*models.Pickup, error) {
	result, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: duplicate pickup", ErrValidation)
		}
		return nil, fmt.Errorf("failed to insert pickup: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return p, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.Pickup, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var p models.Pickup
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve pickup: %w", err)
	}
	return &p, nil
}

// FindAll returns every pickup, newest first.
func (s *MongoStore) FindAll(ctx context.Context) ([]models.Pickup, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query pickups: %w", err)
	}
	defer cursor.Close(ctx)

	var pickups []models.Pickup
	if err = cursor.All(ctx, &pickups); err != nil {
		return nil, fmt.Errorf("failed to decode pickups: %w", err)
	}
	if pickups == nil {
		pickups = []models.Pickup{}
	}
	return pickups, nil
}

// FindAvailable returns pending, unassigned pickups ordered by contamination
// score (desc) with creation time as the tie break. A non-nil origin
// restricts results to radiusMeters around it.
//
// The radius filter uses $geoWithin/$centerSphere instead of $near: $near
// forces distance ordering, and the queue is ordered by score.
func (s *MongoStore) FindAvailable(ctx context.Context, origin *models.GeoPoint, radiusMeters float64, limit int64) ([]models.Pickup, error) {
	filter := bson.M{
		"status":     models.StatusPending,
		"assignedTo": bson.M{"$exists": false},
	}
	if origin != nil {
		filter["geom"] = bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{origin.Coordinates, radiusMeters / earthRadiusMeters},
			},
		}
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: "contaminationScore", Value: -1},
			{Key: "createdAt", Value: 1},
		}).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query available pickups: %w", err)
	}
	defer cursor.Close(ctx)

	var pickups []models.Pickup
	if err = cursor.All(ctx, &pickups); err != nil {
		return nil, fmt.Errorf("failed to decode available pickups: %w", err)
	}
	if pickups == nil {
		pickups = []models.Pickup{}
	}
	return pickups, nil
}

// Claim atomically assigns a pending, unassigned pickup to driverID. The
// precondition lives in the update filter, never in a prior read, so under
// N concurrent claims exactly one matches. A miss is reported as
// ErrAlreadyClaimed whether the pickup was taken, cancelled or never existed.
func (s *MongoStore) Claim(ctx context.Context, id, driverID string, now time.Time) (*models.Pickup, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAlreadyClaimed
	}

	filter := bson.M{
		"_id":        oid,
		"status":     models.StatusPending,
		"assignedTo": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		"status":     models.StatusAssigned,
		"assignedTo": driverID,
		"assignedAt": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Pickup
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim pickup: %w", err)
	}
	return &p, nil
}

// Transition moves a pickup to `to` when its current status is in fromAny,
// as one conditional update. A non-empty requireAssignee additionally pins
// the write to the claiming driver. On a miss the pickup is re-read only to
// pick between ErrNotFound and ErrInvalidTransition; the stored document is
// untouched either way.
func (s *MongoStore) Transition(ctx context.Context, id string, fromAny []string, to string, requireAssignee string) (*models.Pickup, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	filter := bson.M{
		"_id":    oid,
		"status": bson.M{"$in": fromAny},
	}
	if requireAssignee != "" {
		filter["assignedTo"] = requireAssignee
	}
	update := bson.M{"$set": bson.M{"status": to}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Pickup
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to update pickup status: %w", err)
	}

	if _, findErr := s.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("%w: cannot move pickup %s to %s", ErrInvalidTransition, id, to)
}
