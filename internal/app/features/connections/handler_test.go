package connections_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/animelist/internal/app/features/connections"
	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	"github.com/dalemusser/animelist/internal/app/system/auth"
	"github.com/dalemusser/animelist/internal/app/system/events"
	"github.com/dalemusser/animelist/internal/app/system/socialgraph"
	"github.com/dalemusser/animelist/internal/domain/models"
	"github.com/dalemusser/animelist/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newRouter(t *testing.T, db *mongo.Database) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	tm, err := auth.NewTokenManager(strings.Repeat("k", 32), time.Hour, logger)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	r := chi.NewRouter()
	connections.Routes(r, connections.NewHandler(db, apierrors.NewErrorLogger(logger), logger), tm)
	return r
}

func get(router http.Handler, path string, as *models.User) *testutil.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if as != nil {
		req = testutil.WithUser(req, *as)
	}
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	Followers    []models.UserSummary `json:"followers"`
	Following    []models.UserSummary `json:"following"`
	BlockedUsers []models.UserSummary `json:"blockedUsers"`
	NextCursor   string               `json:"nextCursor"`
	HasMore      bool                 `json:"hasMore"`
}

func names(us []models.UserSummary) string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.Username
	}
	return strings.Join(out, ",")
}

func TestConnectionLists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	router := newRouter(t, db)
	graph := socialgraph.New(db, events.Nop{}, zap.NewNop())

	star := fx.CreateUser(ctx, "star")
	zed := fx.CreateUser(ctx, "zed")
	amy := fx.CreateUser(ctx, "Amy")
	mob := fx.CreateUser(ctx, "mob")
	for _, u := range []models.User{zed, amy} {
		if _, err := graph.Follow(ctx, u.ID, star.ID); err != nil {
			t.Fatalf("Follow: %v", err)
		}
	}
	if _, err := graph.Follow(ctx, star.ID, zed.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if err := graph.Block(ctx, star.ID, mob.ID); err != nil {
		t.Fatalf("Block: %v", err)
	}

	var body listBody
	rec := get(router, "/getFollowers/"+star.ID.Hex()+"?limit=1", nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &body)
	if names(body.Followers) != "Amy" || !body.HasMore || body.NextCursor == "" {
		t.Fatalf("first page = %+v", body)
	}
	cursor := body.NextCursor
	body = listBody{}
	get(router, "/getFollowers/"+star.ID.Hex()+"?limit=1&after="+url.QueryEscape(cursor), nil).DecodeJSON(t, &body)
	if names(body.Followers) != "zed" || body.HasMore {
		t.Errorf("second page = %+v", body)
	}

	body = listBody{}
	get(router, "/getFollowing/"+star.ID.Hex(), nil).DecodeJSON(t, &body)
	if names(body.Following) != "zed" {
		t.Errorf("following = %q", names(body.Following))
	}

	body = listBody{}
	rec = get(router, "/getBlocked/"+star.ID.Hex(), &star)
	rec.AssertStatus(t, http.StatusOK)
	rec.DecodeJSON(t, &body)
	if names(body.BlockedUsers) != "mob" {
		t.Errorf("blocked = %q", names(body.BlockedUsers))
	}

	rec = get(router, "/getFollowing/"+mob.ID.Hex(), nil)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"following":[]`)
}

func TestConnectionErrors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	router := newRouter(t, db)
	a := fx.CreateUser(ctx, "alice")
	b := fx.CreateUser(ctx, "bob")

	tests := []struct {
		name   string
		path   string
		as     *models.User
		status int
	}{
		{"bad id", "/getFollowers/xyz", nil, http.StatusBadRequest},
		{"unknown user", "/getFollowing/0123456789abcdef01234567", nil, http.StatusNotFound},
		{"bad limit", "/getFollowers/" + a.ID.Hex() + "?limit=500", nil, http.StatusBadRequest},
		{"blocked anonymous", "/getBlocked/" + a.ID.Hex(), nil, http.StatusUnauthorized},
		{"blocked of another user", "/getBlocked/" + a.ID.Hex(), &b, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			get(router, tt.path, tt.as).AssertStatus(t, tt.status)
		})
	}
}
