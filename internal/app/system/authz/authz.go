// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/animelist/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's username, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "", NilObjectID, false. This ensures callers can trust that ok=true means
// a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (username string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed id in a verified token: fail closed.
		return "", primitive.NilObjectID, false
	}
	return user.Username, userID, true
}

// UserID returns only the caller's ObjectID.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	_, id, ok := UserCtx(r)
	return id, ok
}

// IsSelf reports whether the signed-in caller is the user identified by id.
// Account mutations are restricted to the account owner.
func IsSelf(r *http.Request, id primitive.ObjectID) bool {
	me, ok := UserID(r)
	return ok && !id.IsZero() && me == id
}
