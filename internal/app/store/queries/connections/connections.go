// Package connections lists the users on one side of a relationship:
// a user's followers, the accounts they follow, or the accounts they blocked.
package connections

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/animelist/internal/app/store/users"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUserNotFound is returned when the owning user does not exist.
var ErrUserNotFound = errors.New("user not found")

// Kind names the relationship set to list.
type Kind string

const (
	Followers Kind = userstore.FieldFollowers
	Following Kind = userstore.FieldFollowing
	Blocked   Kind = userstore.FieldBlockedUsers
)

// List returns one page of the user summaries in userID's kind set, ordered by
// folded username.
func List(ctx context.Context, db *mongo.Database, userID primitive.ObjectID, kind Kind, after string, limit int) (userstore.Page, error) {
	field := string(kind)

	var doc bson.M
	err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{field: 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return userstore.Page{}, ErrUserNotFound
	}
	if err != nil {
		return userstore.Page{}, err
	}

	ids := []primitive.ObjectID{}
	if arr, ok := doc[field].(bson.A); ok {
		for _, v := range arr {
			if oid, ok := v.(primitive.ObjectID); ok {
				ids = append(ids, oid)
			}
		}
	}

	return userstore.New(db).List(ctx, userstore.ListOptions{
		IDs:   ids,
		After: after,
		Limit: limit,
	})
}
