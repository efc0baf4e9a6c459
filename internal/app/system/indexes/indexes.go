// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	loginstore "github.com/dalemusser/animelist/internal/app/store/logins"
	"github.com/dalemusser/animelist/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureActivities(ctx, db); err != nil {
		problems = append(problems, "activities: "+err.Error())
	}

	if err := ensureLoginRecords(ctx, db); err != nil {
		problems = append(problems, "login_records: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

type desiredIndex struct {
	model  mongo.IndexModel
	name   string
	unique bool
	sig    string
}

func describe(m mongo.IndexModel) desiredIndex {
	d := desiredIndex{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		if m.Options.Unique != nil {
			d.unique = *m.Options.Unique
		}
	}
	return d
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isUnique(p *bool) bool { return p != nil && *p }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// createErr explains a failed CreateOne. Unique indexes that cannot be built
// because of existing duplicates get a finder query for the operator.
func createErr(coll *mongo.Collection, d desiredIndex, err error) string {
	if isDuplicateKeyErr(err) && d.unique {
		field := strings.SplitN(d.sig, ":", 2)[0]
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present); finder: "+
			`db.%s.aggregate([{ $group: { _id: "$%s", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`,
			coll.Name(), d.name, coll.Name(), field)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err)
}

// replace drops an index and creates the desired one in its place.
func replace(ctx context.Context, coll *mongo.Collection, oldName string, d desiredIndex) error {
	if _, err := coll.Indexes().DropOne(ctx, oldName); err != nil {
		zap.L().Warn("drop existing index failed",
			zap.String("collection", coll.Name()),
			zap.String("name", oldName),
			zap.Error(err))
		return fmt.Errorf("%s(%s): drop failed: %w", coll.Name(), d.name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		return errors.New(createErr(coll, d, err))
	}
	return nil
}

func ensureOne(ctx context.Context, coll *mongo.Collection, d desiredIndex) error {
	start := time.Now()
	fields := []zap.Field{
		zap.String("collection", coll.Name()),
		zap.String("name", d.name),
		zap.String("keys", d.sig),
		zap.Bool("unique", d.unique),
	}
	zap.L().Info("ensuring index", fields...)

	if ex, ok := listIndexes(ctx, coll)[d.sig]; ok {
		switch {
		case isUnique(ex.Unique) != d.unique:
			// Options mismatch (e.g., upgrading to unique).
			if err := replace(ctx, coll, ex.Name, d); err != nil {
				return err
			}
			zap.L().Info("index dropped and recreated", append(fields, zap.Duration("took", time.Since(start)))...)
		case d.name != "" && ex.Name != d.name:
			if err := replace(ctx, coll, ex.Name, d); err != nil {
				return err
			}
			zap.L().Info("index renamed", append(fields, zap.String("from", ex.Name), zap.Duration("took", time.Since(start)))...)
		default:
			zap.L().Info("reusing existing index", append(fields, zap.Duration("took", time.Since(start)))...)
		}
		return nil
	}

	created, err := coll.Indexes().CreateOne(ctx, d.model)
	if err == nil {
		zap.L().Info("index ensured", append(fields, zap.String("created_name", created), zap.Duration("took", time.Since(start)))...)
		return nil
	}
	if isOptionsConflictErr(err) {
		if ex, ok := listIndexes(ctx, coll)[d.sig]; ok {
			if isUnique(ex.Unique) == d.unique {
				zap.L().Info("reusing existing index (post-conflict)", append(fields, zap.String("existing", ex.Name))...)
				return nil
			}
			return replace(ctx, coll, ex.Name, d)
		}
	}
	zap.L().Warn("index ensure failed", append(fields, zap.Duration("took", time.Since(start)), zap.Error(err))...)
	return errors.New(createErr(coll, d, err))
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	for _, m := range models {
		if err := ensureOne(ctx, coll, describe(m)); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Usernames are unique case-insensitively; also drives name-ordered listings.
		{
			Keys:    bson.D{{Key: "username_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_usernameci"),
		},
		// Multikey indexes used by the account-deletion cascade and connection lookups.
		{
			Keys:    bson.D{{Key: "followers", Value: 1}},
			Options: options.Index().SetName("idx_users_followers"),
		},
		{
			Keys:    bson.D{{Key: "following", Value: 1}},
			Options: options.Index().SetName("idx_users_following"),
		},
		{
			Keys:    bson.D{{Key: "pendingRequests", Value: 1}},
			Options: options.Index().SetName("idx_users_pendingrequests"),
		},
		{
			Keys:    bson.D{{Key: "blockedUsers", Value: 1}},
			Options: options.Index().SetName("idx_users_blockedusers"),
		},
	})
}

func ensureActivities(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("activities")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Feed branch 1: follow requests addressed to the viewer, newest first.
		{
			Keys: bson.D{
				{Key: "type", Value: 1},
				{Key: "targetUserId", Value: 1},
				{Key: "timestamp", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_activities_type_target_ts"),
		},
		// Feed branch 2: follows and favorites by followed users.
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "type", Value: 1},
				{Key: "timestamp", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_activities_user_type_ts"),
		},
		// Retention sweep.
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("idx_activities_ts"),
		},
		// At most one outstanding follow request per (requester, target).
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "targetUserId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_activities_followrequest").
				SetPartialFilterExpression(bson.M{"type": models.ActivityFollowRequest}),
		},
	})
}

func ensureLoginRecords(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("login_records")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_logins_user_created"),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_logins_created").
				SetExpireAfterSeconds(int32(loginstore.Retention / time.Second)),
		},
	})
}
