package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/animelist/internal/app/system/auth"
	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long"

func newTestTokenManager(t *testing.T, ttl time.Duration) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(testSecret, ttl, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	return tm
}

func protected(tm *auth.TokenManager) http.Handler {
	return tm.LoadUser(tm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := auth.CurrentUser(r)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(u.ID))
	})))
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body["message"]
}

func TestNewTokenManager_EmptySecret(t *testing.T) {
	if _, err := auth.NewTokenManager("", time.Hour, zap.NewNop()); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestIssueAndVerify(t *testing.T) {
	tm := newTestTokenManager(t, time.Hour)

	tok, err := tm.Issue("507f1f77bcf86cd799439011", "a@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := tm.Verify(tok)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != "507f1f77bcf86cd799439011" || claims.Email != "a@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestVerify_Expired(t *testing.T) {
	tm := newTestTokenManager(t, time.Nanosecond)
	tok, err := tm.Issue("507f1f77bcf86cd799439011", "a@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	if _, err := tm.Verify(tok); err != auth.ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	other, err := auth.NewTokenManager("another-secret-that-is-32-chars-long!", time.Hour, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	tok, _ := other.Issue("507f1f77bcf86cd799439011", "a@example.com")

	tm := newTestTokenManager(t, time.Hour)
	if _, err := tm.Verify(tok); err != auth.ErrTokenInvalid {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestRequireSignedIn(t *testing.T) {
	tm := newTestTokenManager(t, time.Hour)
	valid, _ := tm.Issue("507f1f77bcf86cd799439011", "a@example.com")

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{"no header", "", http.StatusUnauthorized, "Missing authentication token"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Missing authentication token"},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized, "Invalid authentication token"},
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(tm).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantMsg != "" {
				if got := messageOf(t, rec); got != tt.wantMsg {
					t.Errorf("message = %q, want %q", got, tt.wantMsg)
				}
			} else if rec.Body.String() != "507f1f77bcf86cd799439011" {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

type stubFetcher struct{ user *auth.User }

func (s stubFetcher) FetchUser(ctx context.Context, userID string) *auth.User { return s.user }

func TestLoadUser_FetcherRejectsDeletedUser(t *testing.T) {
	tm := newTestTokenManager(t, time.Hour)
	tm.SetUserFetcher(stubFetcher{user: nil})
	tok, _ := tm.Issue("507f1f77bcf86cd799439011", "a@example.com")

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	protected(tm).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCurrentUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if u, ok := auth.CurrentUser(req); ok || u != nil {
		t.Error("expected no user in a bare request")
	}

	req = auth.WithTestUser(req, &auth.User{ID: "507f1f77bcf86cd799439011", Username: "spike"})
	u, ok := auth.CurrentUser(req)
	if !ok || u.Username != "spike" {
		t.Errorf("expected injected user, got %+v, %v", u, ok)
	}
}
