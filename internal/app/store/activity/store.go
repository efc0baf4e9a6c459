// internal/app/store/activity/store.go
package activity

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/animelist/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrUnknownType is returned by Create for an activity type outside the known set.
var ErrUnknownType = errors.New("unknown activity type")

// Store manages the activities collection. Indexes live in system/indexes.
type Store struct {
	c *mongo.Collection
}

// New creates a new activity Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activities")}
}

// Create records a new activity. ID and Timestamp are filled in when zero.
func (s *Store) Create(ctx context.Context, a models.Activity) (models.Activity, error) {
	if !models.IsValidActivityType(a.Type) {
		return models.Activity{}, ErrUnknownType
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Activity{}, err
	}
	return a, nil
}

// GetByID loads an activity. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Activity, error) {
	var a models.Activity
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindFollowRequest returns the outstanding followRequest from requester to
// target, or nil when there is none.
func (s *Store) FindFollowRequest(ctx context.Context, requester, target primitive.ObjectID) (*models.Activity, error) {
	var a models.Activity
	err := s.c.FindOne(ctx, bson.M{
		"type":         models.ActivityFollowRequest,
		"userId":       requester,
		"targetUserId": target,
	}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes one activity. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteFollowRequestsBetween removes follow requests in either direction
// between a and b.
func (s *Store) DeleteFollowRequestsBetween(ctx context.Context, a, b primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"type": models.ActivityFollowRequest,
		"$or": []bson.M{
			{"userId": a, "targetUserId": b},
			{"userId": b, "targetUserId": a},
		},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteFollowRequestFrom removes the request from requester to target.
func (s *Store) DeleteFollowRequestFrom(ctx context.Context, requester, target primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"type":         models.ActivityFollowRequest,
		"userId":       requester,
		"targetUserId": target,
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteFollowRequestsTo removes every follow request addressed to target.
func (s *Store) DeleteFollowRequestsTo(ctx context.Context, target primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"type":         models.ActivityFollowRequest,
		"targetUserId": target,
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteInvolving removes every activity where the user is the actor or the target.
func (s *Store) DeleteInvolving(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": []bson.M{
		{"userId": userID},
		{"targetUserId": userID},
	}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteOlderThan removes activities with timestamp strictly before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
