package socialgraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/animelist/internal/app/system/events"
	"github.com/dalemusser/animelist/internal/app/system/indexes"
	"github.com/dalemusser/animelist/internal/app/system/socialgraph"
	"github.com/dalemusser/animelist/internal/domain/models"
	"github.com/dalemusser/animelist/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	db  *mongo.Database
	fx  *testutil.Fixtures
	svc *socialgraph.Service
	rec *events.Recorder
}

func setup(t *testing.T) (*env, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	rec := &events.Recorder{}
	return &env{
		db:  db,
		fx:  testutil.NewFixtures(t, db),
		svc: socialgraph.New(db, rec, zap.NewNop()),
		rec: rec,
	}, ctx
}

func (e *env) user(t *testing.T, ctx context.Context, id primitive.ObjectID) models.User {
	t.Helper()
	var u models.User
	if err := e.db.Collection("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		t.Fatalf("load user: %v", err)
	}
	return u
}

func (e *env) countActivities(t *testing.T, ctx context.Context, filter bson.M) int64 {
	t.Helper()
	n, err := e.db.Collection("activities").CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("count activities: %v", err)
	}
	return n
}

func (e *env) followRequest(t *testing.T, ctx context.Context, from, to primitive.ObjectID) models.Activity {
	t.Helper()
	var a models.Activity
	err := e.db.Collection("activities").FindOne(ctx, bson.M{
		"type": models.ActivityFollowRequest, "userId": from, "targetUserId": to,
	}).Decode(&a)
	if err != nil {
		t.Fatalf("load follow request: %v", err)
	}
	return a
}

func ids(list ...primitive.ObjectID) []primitive.ObjectID { return list }

func sameIDs(got, want []primitive.ObjectID) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestFollow_PublicTargetCreatesSymmetricEdge(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	b := e.fx.CreateUser(ctx, "bob")

	out, err := e.svc.Follow(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if out != socialgraph.Followed {
		t.Errorf("outcome = %v, want Followed", out)
	}

	if got := e.user(t, ctx, a.ID).Following; !sameIDs(got, ids(b.ID)) {
		t.Errorf("alice.following = %v", got)
	}
	if got := e.user(t, ctx, b.ID).Followers; !sameIDs(got, ids(a.ID)) {
		t.Errorf("bob.followers = %v", got)
	}

	var act models.Activity
	if err := e.db.Collection("activities").FindOne(ctx, bson.M{"type": models.ActivityFollow}).Decode(&act); err != nil {
		t.Fatalf("follow activity: %v", err)
	}
	if act.UserID != a.ID || act.TargetUserID == nil || *act.TargetUserID != b.ID {
		t.Errorf("activity = %+v", act)
	}
	if act.MainName != "alice" || act.MainPfp != a.ProfilePicture {
		t.Errorf("snapshot = %q/%q", act.MainName, act.MainPfp)
	}
	if got := e.rec.Types(); len(got) != 1 || got[0] != events.TypeFollow {
		t.Errorf("events = %v", got)
	}
}

func TestFollowThenUnfollow_RestoresState(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	b := e.fx.CreateUser(ctx, "bob")

	if _, err := e.svc.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if err := e.svc.Unfollow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	if got := e.user(t, ctx, a.ID).Following; len(got) != 0 {
		t.Errorf("alice.following = %v, want empty", got)
	}
	if got := e.user(t, ctx, b.ID).Followers; len(got) != 0 {
		t.Errorf("bob.followers = %v, want empty", got)
	}

	if err := e.svc.Unfollow(ctx, a.ID, b.ID); !errors.Is(err, socialgraph.ErrNoChange) {
		t.Errorf("second Unfollow err = %v, want ErrNoChange", err)
	}
}

func TestFollow_AlreadyFollowingIsNoChange(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	b := e.fx.CreateUser(ctx, "bob")

	if _, err := e.svc.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if _, err := e.svc.Follow(ctx, a.ID, b.ID); !errors.Is(err, socialgraph.ErrNoChange) {
		t.Errorf("err = %v, want ErrNoChange", err)
	}
	if n := e.countActivities(t, ctx, bson.M{"type": models.ActivityFollow}); n != 1 {
		t.Errorf("follow activities = %d, want 1", n)
	}
}

func TestFollow_PrivateTargetFilesRequestOnce(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	c := e.fx.CreatePrivateUser(ctx, "carol")

	out, err := e.svc.Follow(ctx, a.ID, c.ID)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if out != socialgraph.Requested {
		t.Errorf("outcome = %v, want Requested", out)
	}

	_, err = e.svc.Follow(ctx, a.ID, c.ID)
	if !errors.Is(err, socialgraph.ErrDuplicateRequest) {
		t.Errorf("second Follow err = %v, want ErrDuplicateRequest", err)
	}

	carol := e.user(t, ctx, c.ID)
	if !sameIDs(carol.PendingRequests, ids(a.ID)) {
		t.Errorf("carol.pendingRequests = %v", carol.PendingRequests)
	}
	if len(carol.Followers) != 0 || len(e.user(t, ctx, a.ID).Following) != 0 {
		t.Error("a private follow must not create an edge")
	}
	if n := e.countActivities(t, ctx, bson.M{"type": models.ActivityFollowRequest}); n != 1 {
		t.Errorf("followRequest activities = %d, want 1", n)
	}
}

func TestAcceptFollowRequest(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	c := e.fx.CreatePrivateUser(ctx, "carol")

	if _, err := e.svc.Follow(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	req := e.followRequest(t, ctx, a.ID, c.ID)

	if err := e.svc.AcceptFollowRequest(ctx, c.ID, req.ID.Hex()); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	carol := e.user(t, ctx, c.ID)
	if !sameIDs(carol.Followers, ids(a.ID)) {
		t.Errorf("carol.followers = %v", carol.Followers)
	}
	if len(carol.PendingRequests) != 0 {
		t.Errorf("carol.pendingRequests = %v, want empty", carol.PendingRequests)
	}
	if got := e.user(t, ctx, a.ID).Following; !sameIDs(got, ids(c.ID)) {
		t.Errorf("alice.following = %v", got)
	}
	if n := e.countActivities(t, ctx, bson.M{"type": models.ActivityFollowRequest}); n != 0 {
		t.Errorf("followRequest activities = %d, want 0", n)
	}
	if n := e.countActivities(t, ctx, bson.M{"type": models.ActivityFollow, "userId": a.ID, "targetUserId": c.ID}); n != 1 {
		t.Errorf("follow activities = %d, want 1", n)
	}

	// The request is gone; accepting again is NotFound.
	if err := e.svc.AcceptFollowRequest(ctx, c.ID, req.ID.Hex()); !errors.Is(err, socialgraph.ErrNotFound) {
		t.Errorf("second Accept err = %v, want ErrNotFound", err)
	}
}

func TestAcceptFollowRequest_Errors(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	b := e.fx.CreateUser(ctx, "bob")
	c := e.fx.CreatePrivateUser(ctx, "carol")

	if _, err := e.svc.Follow(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	req := e.followRequest(t, ctx, a.ID, c.ID)
	follow := e.fx.CreateActivity(ctx, models.Activity{UserID: a.ID, Type: models.ActivityFollow, TargetUserID: &c.ID})

	tests := []struct {
		name  string
		actor primitive.ObjectID
		id    string
		want  error
	}{
		{"malformed id", c.ID, "not-an-id", socialgraph.ErrNotFound},
		{"unknown id", c.ID, primitive.NewObjectID().Hex(), socialgraph.ErrNotFound},
		{"wrong type", c.ID, follow.ID.Hex(), socialgraph.ErrNotFound},
		{"not the target", b.ID, req.ID.Hex(), socialgraph.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.svc.AcceptFollowRequest(ctx, tt.actor, tt.id); !errors.Is(err, tt.want) {
				t.Errorf("Accept err = %v, want %v", err, tt.want)
			}
			if err := e.svc.RejectFollowRequest(ctx, tt.actor, tt.id); !errors.Is(err, tt.want) {
				t.Errorf("Reject err = %v, want %v", err, tt.want)
			}
		})
	}

	// Nothing above touched the pending request.
	if got := e.user(t, ctx, c.ID).PendingRequests; !sameIDs(got, ids(a.ID)) {
		t.Errorf("carol.pendingRequests = %v", got)
	}
}

func TestAcceptFollowRequest_ExistingEdgeRollsBack(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	c := e.fx.CreatePrivateUser(ctx, "carol")

	if _, err := e.svc.Follow(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	req := e.followRequest(t, ctx, a.ID, c.ID)

	// Edge already present on both sides.
	users := e.db.Collection("users")
	users.UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{"$addToSet": bson.M{"following": c.ID}})
	users.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$addToSet": bson.M{"followers": a.ID}})

	if err := e.svc.AcceptFollowRequest(ctx, c.ID, req.ID.Hex()); !errors.Is(err, socialgraph.ErrNoChange) {
		t.Fatalf("err = %v, want ErrNoChange", err)
	}
	if n := e.countActivities(t, ctx, bson.M{"_id": req.ID}); n != 1 {
		t.Error("request activity must survive a NoChange accept")
	}
}

func TestRejectFollowRequest(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	c := e.fx.CreatePrivateUser(ctx, "carol")

	if _, err := e.svc.Follow(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	req := e.followRequest(t, ctx, a.ID, c.ID)

	if err := e.svc.RejectFollowRequest(ctx, c.ID, req.ID.Hex()); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	carol := e.user(t, ctx, c.ID)
	if len(carol.PendingRequests) != 0 || len(carol.Followers) != 0 {
		t.Errorf("carol = pending %v followers %v", carol.PendingRequests, carol.Followers)
	}
	if n := e.countActivities(t, ctx, bson.M{}); n != 0 {
		t.Errorf("activities = %d, want 0", n)
	}

	// A rejected user may ask again.
	if out, err := e.svc.Follow(ctx, a.ID, c.ID); err != nil || out != socialgraph.Requested {
		t.Errorf("re-request = %v, %v", out, err)
	}
}

func TestUnfollow_CancelsPendingRequest(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	c := e.fx.CreatePrivateUser(ctx, "carol")

	if _, err := e.svc.Follow(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if err := e.svc.Unfollow(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	if got := e.user(t, ctx, c.ID).PendingRequests; len(got) != 0 {
		t.Errorf("carol.pendingRequests = %v, want empty", got)
	}
	if n := e.countActivities(t, ctx, bson.M{"type": models.ActivityFollowRequest}); n != 0 {
		t.Errorf("followRequest activities = %d, want 0", n)
	}
}

func TestBlock_ClearsEverythingBothWays(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreatePrivateUser(ctx, "alice")
	b := e.fx.CreateUser(ctx, "bob")

	// alice follows bob; bob has a pending request to alice.
	if _, err := e.svc.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Follow a->b: %v", err)
	}
	if _, err := e.svc.Follow(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("Follow b->a: %v", err)
	}

	if err := e.svc.Block(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("Block: %v", err)
	}

	for _, u := range []models.User{e.user(t, ctx, a.ID), e.user(t, ctx, b.ID)} {
		if len(u.Following) != 0 || len(u.Followers) != 0 || len(u.PendingRequests) != 0 {
			t.Errorf("%s still has relationships: %+v", u.Username, u)
		}
		if len(u.BlockedUsers) != 1 {
			t.Errorf("%s.blockedUsers = %v, want one entry", u.Username, u.BlockedUsers)
		}
	}
	if n := e.countActivities(t, ctx, bson.M{"type": models.ActivityFollowRequest}); n != 0 {
		t.Errorf("followRequest activities = %d, want 0", n)
	}

	// Blocked in either direction forbids following.
	if _, err := e.svc.Follow(ctx, a.ID, b.ID); !errors.Is(err, socialgraph.ErrForbidden) {
		t.Errorf("Follow after block err = %v, want ErrForbidden", err)
	}

	if err := e.svc.Unblock(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	if len(e.user(t, ctx, a.ID).BlockedUsers) != 0 || len(e.user(t, ctx, b.ID).BlockedUsers) != 0 {
		t.Error("unblock must clear both sides")
	}
	if _, err := e.svc.Follow(ctx, b.ID, a.ID); err != nil {
		t.Errorf("Follow after unblock: %v", err)
	}
}

func TestSelfActionsFail(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")

	ops := map[string]func() error{
		"follow":   func() error { _, err := e.svc.Follow(ctx, a.ID, a.ID); return err },
		"unfollow": func() error { return e.svc.Unfollow(ctx, a.ID, a.ID) },
		"block":    func() error { return e.svc.Block(ctx, a.ID, a.ID) },
		"unblock":  func() error { return e.svc.Unblock(ctx, a.ID, a.ID) },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, socialgraph.ErrSelfAction) {
			t.Errorf("%s err = %v, want ErrSelfAction", name, err)
		}
	}
	u := e.user(t, ctx, a.ID)
	if len(u.Following)+len(u.Followers)+len(u.BlockedUsers)+len(u.PendingRequests) != 0 {
		t.Errorf("self actions changed state: %+v", u)
	}
	if len(e.rec.Events()) != 0 {
		t.Errorf("self actions published events: %v", e.rec.Types())
	}
}

func TestMissingTargetIsNotFound(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	ghost := primitive.NewObjectID()

	if _, err := e.svc.Follow(ctx, a.ID, ghost); !errors.Is(err, socialgraph.ErrNotFound) {
		t.Errorf("Follow err = %v", err)
	}
	if err := e.svc.Unfollow(ctx, a.ID, ghost); !errors.Is(err, socialgraph.ErrNotFound) {
		t.Errorf("Unfollow err = %v", err)
	}
	if err := e.svc.Block(ctx, a.ID, ghost); !errors.Is(err, socialgraph.ErrNotFound) {
		t.Errorf("Block err = %v", err)
	}
	if err := e.svc.Unblock(ctx, a.ID, ghost); !errors.Is(err, socialgraph.ErrNotFound) {
		t.Errorf("Unblock err = %v", err)
	}
	if got := e.user(t, ctx, a.ID).BlockedUsers; len(got) != 0 {
		t.Errorf("alice.blockedUsers = %v, want empty", got)
	}
}

func TestSetPrivacy_PublicDropsOnlyOwnRequests(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	c := e.fx.CreatePrivateUser(ctx, "carol")
	d := e.fx.CreatePrivateUser(ctx, "dave")

	if _, err := e.svc.Follow(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("Follow carol: %v", err)
	}
	if _, err := e.svc.Follow(ctx, a.ID, d.ID); err != nil {
		t.Fatalf("Follow dave: %v", err)
	}

	if err := e.svc.SetPrivacy(ctx, c.ID, false); err != nil {
		t.Fatalf("SetPrivacy: %v", err)
	}

	carol := e.user(t, ctx, c.ID)
	if carol.IsPrivate || len(carol.PendingRequests) != 0 {
		t.Errorf("carol = private %v pending %v", carol.IsPrivate, carol.PendingRequests)
	}
	if n := e.countActivities(t, ctx, bson.M{"type": models.ActivityFollowRequest, "targetUserId": c.ID}); n != 0 {
		t.Errorf("requests to carol = %d, want 0", n)
	}
	if n := e.countActivities(t, ctx, bson.M{"type": models.ActivityFollowRequest, "targetUserId": d.ID}); n != 1 {
		t.Errorf("requests to dave = %d, want 1 (unrelated user untouched)", n)
	}
	if got := e.user(t, ctx, d.ID).PendingRequests; !sameIDs(got, ids(a.ID)) {
		t.Errorf("dave.pendingRequests = %v", got)
	}

	if err := e.svc.SetPrivacy(ctx, primitive.NewObjectID(), true); !errors.Is(err, socialgraph.ErrNotFound) {
		t.Errorf("SetPrivacy unknown user err = %v", err)
	}
}

func TestDeleteAccount_Cascades(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	b := e.fx.CreateUser(ctx, "bob")
	c := e.fx.CreatePrivateUser(ctx, "carol")

	if _, err := e.svc.Follow(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if _, err := e.svc.Follow(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if _, err := e.svc.Follow(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	e.fx.CreateActivity(ctx, models.Activity{UserID: b.ID, Type: models.ActivityAddFavoriteAnime, AnimeID: 21})

	deleted, err := e.svc.DeleteAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if deleted.ID != a.ID {
		t.Errorf("deleted = %v", deleted.ID)
	}

	if n, _ := e.db.Collection("users").CountDocuments(ctx, bson.M{"_id": a.ID}); n != 0 {
		t.Error("user document not deleted")
	}
	bob := e.user(t, ctx, b.ID)
	if len(bob.Followers) != 0 || len(bob.Following) != 0 {
		t.Errorf("bob still references alice: %+v", bob)
	}
	if got := e.user(t, ctx, c.ID).PendingRequests; len(got) != 0 {
		t.Errorf("carol.pendingRequests = %v", got)
	}
	involving := bson.M{"$or": []bson.M{{"userId": a.ID}, {"targetUserId": a.ID}}}
	if n := e.countActivities(t, ctx, involving); n != 0 {
		t.Errorf("activities involving alice = %d, want 0", n)
	}
	if n := e.countActivities(t, ctx, bson.M{"userId": b.ID, "type": models.ActivityAddFavoriteAnime}); n != 1 {
		t.Error("unrelated activity removed")
	}

	if _, err := e.svc.DeleteAccount(ctx, a.ID); !errors.Is(err, socialgraph.ErrNotFound) {
		t.Errorf("second DeleteAccount err = %v, want ErrNotFound", err)
	}
}

func TestRelationship(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")
	b := e.fx.CreateUser(ctx, "bob")
	c := e.fx.CreatePrivateUser(ctx, "carol")

	check := func(viewer, other primitive.ObjectID, state, incoming socialgraph.State) {
		t.Helper()
		rel, err := e.svc.Relationship(ctx, viewer, other)
		if err != nil {
			t.Fatalf("Relationship: %v", err)
		}
		if rel.State != state || rel.Incoming != incoming {
			t.Errorf("relationship = %+v, want {%s %s}", rel, state, incoming)
		}
	}

	check(a.ID, b.ID, socialgraph.StateNone, socialgraph.StateNone)

	e.svc.Follow(ctx, a.ID, b.ID)
	check(a.ID, b.ID, socialgraph.StateFollowing, socialgraph.StateNone)
	check(b.ID, a.ID, socialgraph.StateNone, socialgraph.StateFollowing)

	e.svc.Follow(ctx, a.ID, c.ID)
	check(a.ID, c.ID, socialgraph.StatePending, socialgraph.StateNone)

	e.svc.Block(ctx, c.ID, a.ID)
	check(a.ID, c.ID, socialgraph.StateBlocked, socialgraph.StateBlocked)

	if _, err := e.svc.Relationship(ctx, a.ID, a.ID); !errors.Is(err, socialgraph.ErrSelfAction) {
		t.Errorf("self relationship err = %v", err)
	}
}

func TestRejectionMessages(t *testing.T) {
	e, ctx := setup(t)
	a := e.fx.CreateUser(ctx, "alice")

	_, err := e.svc.Follow(ctx, a.ID, a.ID)
	if err == nil || err.Error() != "You cannot follow yourself" {
		t.Errorf("message = %v", err)
	}
	if !socialgraph.IsRejection(err) {
		t.Error("self follow should be a rejection")
	}
	if socialgraph.IsRejection(errors.New("boom")) {
		t.Error("arbitrary errors are not rejections")
	}
}
