package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/animelist/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "correct-horse-battery"

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

var fixtureHash []byte

func passwordHash(t *testing.T) string {
	if fixtureHash == nil {
		h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt: %v", err)
		}
		fixtureHash = h
	}
	return string(fixtureHash)
}

// CreateUser creates a public user named username with email
// <username>@example.com and TestPassword.
func (f *Fixtures) CreateUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, username, false)
}

// CreatePrivateUser is CreateUser with isPrivate set.
func (f *Fixtures) CreatePrivateUser(ctx context.Context, username string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, username, true)
}

func (f *Fixtures) insertUser(ctx context.Context, username string, private bool) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:              primitive.NewObjectID(),
		Username:        username,
		UsernameCI:      text.Fold(username),
		Email:           strings.ToLower(username) + "@example.com",
		PasswordHash:    passwordHash(f.t),
		ProfilePicture:  models.DefaultProfilePicture,
		FavoriteAnimes:  []models.FavoriteAnime{},
		Followers:       []primitive.ObjectID{},
		Following:       []primitive.ObjectID{},
		PendingRequests: []primitive.ObjectID{},
		BlockedUsers:    []primitive.ObjectID{},
		IsPrivate:       private,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create user %q: %v", username, err)
	}
	return u
}

// CreateActivity inserts a as-is, filling ID and Timestamp when zero.
func (f *Fixtures) CreateActivity(ctx context.Context, a models.Activity) models.Activity {
	f.t.Helper()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if _, err := f.db.Collection("activities").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create activity: %v", err)
	}
	return a
}
