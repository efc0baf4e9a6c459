package loginstore_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	loginstore "github.com/dalemusser/animelist/internal/app/store/logins"
	"github.com/dalemusser/animelist/internal/domain/models"
	"github.com/dalemusser/animelist/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateFromAndRecent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", strings.Repeat("u", 400))

	if err := store.CreateFrom(ctx, req, userID); err != nil {
		t.Fatalf("CreateFrom failed: %v", err)
	}
	older := time.Now().UTC().Add(-time.Hour)
	if err := store.Create(ctx, models.LoginRecord{UserID: userID, IP: "10.0.0.2", CreatedAt: older}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(ctx, models.LoginRecord{UserID: primitive.NewObjectID(), IP: "10.0.0.3"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	recs, err := store.Recent(ctx, userID, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Recent returned %d records, want 2", len(recs))
	}
	if recs[0].IP != "203.0.113.7" {
		t.Errorf("IP: got %q, want %q", recs[0].IP, "203.0.113.7")
	}
	if len(recs[0].UserAgent) != 256 {
		t.Errorf("user agent length = %d, want 256", len(recs[0].UserAgent))
	}
	if recs[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if recs[1].IP != "10.0.0.2" {
		t.Errorf("second record IP = %q", recs[1].IP)
	}
}

func TestStore_DeleteByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loginstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	gone := primitive.NewObjectID()
	kept := primitive.NewObjectID()
	for _, id := range []primitive.ObjectID{gone, gone, kept} {
		if err := store.Create(ctx, models.LoginRecord{UserID: id, IP: "127.0.0.1"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	n, err := store.DeleteByUser(ctx, gone)
	if err != nil {
		t.Fatalf("DeleteByUser failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if recs, _ := store.Recent(ctx, kept, 10); len(recs) != 1 {
		t.Errorf("kept user has %d records, want 1", len(recs))
	}
}
