// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/animelist/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("activities", activitiesSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank  = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	idSet     = bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}}
	intNumber = bson.A{"int", "long"}
)

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{
				"username", "username_ci", "email", "passwordHash",
				"followers", "following", "pendingRequests", "blockedUsers", "isPrivate",
			},
			"properties": bson.M{
				"username":        nonBlank,
				"username_ci":     nonBlank,
				"email":           nonBlank,
				"passwordHash":    nonBlank,
				"profilePicture":  bson.M{"bsonType": "string"},
				"bio":             bson.M{"bsonType": "string", "maxLength": 500},
				"followers":       idSet,
				"following":       idSet,
				"pendingRequests": idSet,
				"blockedUsers":    idSet,
				"isPrivate":       bson.M{"bsonType": "bool"},
				"favoriteAnimes": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType":   "object",
						"required":   bson.A{"id"},
						"properties": bson.M{"id": bson.M{"bsonType": intNumber}},
					},
				},
			},
		},
	}
}

// activitiesSchema fixes the type enum and the variant fields each type
// carries: follow/followRequest name a target user, addFavoriteAnime an anime.
func activitiesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"userId", "type", "timestamp"},
			"properties": bson.M{
				"userId":       bson.M{"bsonType": "objectId"},
				"type":         bson.M{"enum": bson.A{models.ActivityFollow, models.ActivityFollowRequest, models.ActivityAddFavoriteAnime}},
				"targetUserId": bson.M{"bsonType": "objectId"},
				"animeId":      bson.M{"bsonType": intNumber},
				"timestamp":    bson.M{"bsonType": "date"},
			},
			"anyOf": bson.A{
				bson.M{
					"properties": bson.M{"type": bson.M{"enum": bson.A{models.ActivityFollow, models.ActivityFollowRequest}}},
					"required":   bson.A{"targetUserId"},
				},
				bson.M{
					"properties": bson.M{"type": bson.M{"enum": bson.A{models.ActivityAddFavoriteAnime}}},
					"required":   bson.A{"animeId"},
				},
			},
		},
	}
}
