// Package activityfeed builds a user's activity feed.
package activityfeed

import (
	"context"
	"errors"

	"github.com/dalemusser/animelist/internal/app/system/paging"
	"github.com/dalemusser/animelist/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUserNotFound is returned when the feed owner does not exist.
var ErrUserNotFound = errors.New("user not found")

// Options selects one page of the feed.
type Options struct {
	After string // cursor from a previous Page.NextCursor
	Limit int
}

// Page is one page of the feed, newest first.
type Page struct {
	Activities []models.Activity `json:"activities"`
	NextCursor string            `json:"nextCursor,omitempty"`
	HasMore    bool              `json:"hasMore"`
}

// Build returns the feed for userID: follow and followRequest activities
// targeting the user, plus addFavoriteAnime activities by accounts the user
// follows. mainName/mainPfp carry the actor's current username and picture;
// the stored snapshot is used when the actor no longer exists.
func Build(ctx context.Context, db *mongo.Database, userID primitive.ObjectID, opt Options) (Page, error) {
	if opt.Limit <= 0 {
		opt.Limit = paging.PageSize
	}

	var owner struct {
		Following []primitive.ObjectID `bson:"following"`
	}
	err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"following": 1})).Decode(&owner)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Page{}, ErrUserNotFound
	}
	if err != nil {
		return Page{}, err
	}
	if owner.Following == nil {
		owner.Following = []primitive.ObjectID{}
	}

	match := bson.M{"$or": []bson.M{
		{
			"type":         bson.M{"$in": bson.A{models.ActivityFollow, models.ActivityFollowRequest}},
			"targetUserId": userID,
		},
		{
			"type":   models.ActivityAddFavoriteAnime,
			"userId": bson.M{"$in": owner.Following},
		},
	}}
	if w := paging.TimeWindow("timestamp", opt.After); w != nil {
		match = bson.M{"$and": []bson.M{match, w}}
	}

	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}}},
		bson.D{{Key: "$limit", Value: int64(opt.Limit + 1)}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "userId",
			"foreignField": "_id",
			"as":           "actor",
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{
			"mainName": bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$actor.username", 0}}, "$mainName"}},
			"mainPfp":  bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$actor.profilePicture", 0}}, "$mainPfp"}},
		}}},
		bson.D{{Key: "$project", Value: bson.M{"actor": 0}}},
	}

	cur, err := db.Collection("activities").Aggregate(ctx, pipe)
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	rows := []models.Activity{}
	if err := cur.All(ctx, &rows); err != nil {
		return Page{}, err
	}

	page := Page{Activities: rows}
	page.HasMore = paging.TrimPage(&page.Activities, opt.Limit)
	if page.HasMore {
		last := page.Activities[len(page.Activities)-1]
		page.NextCursor = paging.TimeCursor(last.Timestamp, last.ID)
	}
	return page, nil
}
