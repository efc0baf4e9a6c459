package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/animelist/internal/app/system/validators"
	"github.com/dalemusser/animelist/internal/domain/models"
	"github.com/dalemusser/animelist/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	got := map[string]bool{}
	for _, n := range names {
		got[n] = true
	}
	for _, want := range []string{"users", "activities"} {
		if !got[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestUsersValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	// Fixture users carry every required field.
	fx := testutil.NewFixtures(t, db)
	fx.CreateUser(ctx, "valid")

	tests := []struct {
		name string
		doc  bson.M
	}{
		{"missing relationship sets", bson.M{
			"username": "a", "username_ci": "a", "email": "a@example.com", "passwordHash": "x", "isPrivate": false,
		}},
		{"blank username", bson.M{
			"username": "  ", "username_ci": "  ", "email": "b@example.com", "passwordHash": "x", "isPrivate": false,
			"followers": bson.A{}, "following": bson.A{}, "pendingRequests": bson.A{}, "blockedUsers": bson.A{},
		}},
		{"string in followers", bson.M{
			"username": "c", "username_ci": "c", "email": "c@example.com", "passwordHash": "x", "isPrivate": false,
			"followers": bson.A{"not-an-id"}, "following": bson.A{}, "pendingRequests": bson.A{}, "blockedUsers": bson.A{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.Collection("users").InsertOne(ctx, tt.doc); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestActivitiesValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	actor := primitive.NewObjectID()
	target := primitive.NewObjectID()
	now := time.Now().UTC()

	tests := []struct {
		name    string
		doc     any
		wantErr bool
	}{
		{"follow", models.Activity{UserID: actor, Type: models.ActivityFollow, TargetUserID: &target, Timestamp: now}, false},
		{"favorite", models.Activity{UserID: actor, Type: models.ActivityAddFavoriteAnime, AnimeID: 21, Timestamp: now}, false},
		{"follow without target", models.Activity{UserID: actor, Type: models.ActivityFollow, Timestamp: now}, true},
		{"favorite without anime", models.Activity{UserID: actor, Type: models.ActivityAddFavoriteAnime, Timestamp: now}, true},
		{"unknown type", models.Activity{UserID: actor, Type: "like", TargetUserID: &target, Timestamp: now}, true},
		{"missing timestamp", bson.M{"userId": actor, "type": models.ActivityFollow, "targetUserId": target}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection("activities").InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
