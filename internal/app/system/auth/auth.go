package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Token errors                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

var (
	ErrTokenMissing = errors.New("missing authentication token")
	ErrTokenExpired = errors.New("access token has expired")
	ErrTokenInvalid = errors.New("invalid authentication token")
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// User is the authenticated caller injected into r.Context().
type User struct {
	ID       string
	Username string
	Email    string
}

// UserFetcher loads fresh user data for a verified token. Returning nil
// rejects the token (e.g. the account was deleted after it was issued).
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *User
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	tokenErrKey    ctxKey = "tokenErr"
)

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*User)
	return u, ok
}

// WithTestUser injects u into the request context, as LoadUser would.
func WithTestUser(r *http.Request, u *User) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Token manager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	fetcher UserFetcher
	log     *zap.Logger
}

// NewTokenManager validates the secret and returns a manager.
func NewTokenManager(secret string, ttl time.Duration, logger *zap.Logger) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("jwt secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, log: logger}, nil
}

// SetUserFetcher makes LoadUser look the user up on every request.
func (tm *TokenManager) SetUserFetcher(f UserFetcher) { tm.fetcher = f }

// TTL reports how long issued tokens stay valid.
func (tm *TokenManager) TTL() time.Duration { return tm.ttl }

// Claims are the verified contents of a token.
type Claims struct {
	UserID string
	Email  string
}

// Issue signs a token carrying the user id and email.
func (tm *TokenManager) Issue(userID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": userID,
		"email":  email,
		"iat":    now.Unix(),
		"exp":    now.Add(tm.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
}

// Verify parses a token and returns its claims, ErrTokenExpired or
// ErrTokenInvalid.
func (tm *TokenManager) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return tm.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrTokenInvalid
	}
	uid, _ := mc["userId"].(string)
	if uid == "" {
		return Claims{}, ErrTokenInvalid
	}
	email, _ := mc["email"].(string)
	return Claims{UserID: uid, Email: email}, nil
}

// LoadUser injects the user into context when a valid bearer token is
// present. Requests without a usable token continue anonymously; the reason
// is kept so RequireSignedIn can report it.
func (tm *TokenManager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := tm.Verify(raw)
		if err != nil {
			next.ServeHTTP(w, withTokenErr(r, err))
			return
		}

		u := &User{ID: claims.UserID, Email: claims.Email}
		if tm.fetcher != nil {
			u = tm.fetcher.FetchUser(r.Context(), claims.UserID)
			if u == nil {
				tm.log.Debug("token user no longer exists", zap.String("user_id", claims.UserID))
				next.ServeHTTP(w, withTokenErr(r, ErrTokenInvalid))
				return
			}
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadUser).
// Otherwise it answers 401 with a JSON message.
func (tm *TokenManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		reason := ErrTokenMissing
		if err, ok := r.Context().Value(tokenErrKey).(error); ok {
			reason = err
		}
		writeUnauthorized(w, reason)
	})
}

// helpers

func withUser(r *http.Request, u *User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func withTokenErr(r *http.Request, err error) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), tokenErrKey, err))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeUnauthorized(w http.ResponseWriter, reason error) {
	msg := reason.Error()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message": strings.ToUpper(msg[:1]) + msg[1:],
	})
}
