// internal/app/features/accounts/account.go
package accounts

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	userstore "github.com/dalemusser/animelist/internal/app/store/users"
	"github.com/dalemusser/animelist/internal/app/system/authz"
	"github.com/dalemusser/animelist/internal/app/system/htmlsanitize"
	"github.com/dalemusser/animelist/internal/app/system/inputval"
	"github.com/dalemusser/animelist/internal/app/system/mediastore"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// updateInput holds the optional fields of an account update. Nil means
// "leave unchanged".
type updateInput struct {
	Username  *string `json:"username" validate:"omitnil,username" label:"Username"`
	Email     *string `json:"email" validate:"omitnil,email,max=254" label:"Email"`
	Bio       *string `json:"bio" validate:"omitnil,max=500" label:"Bio"`
	IsPrivate *bool   `json:"isPrivate"`
}

type accountView struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture"`
	IsPrivate      bool   `json:"isPrivate"`
}

// ownAccount resolves {userId} and checks it is the caller.
func (h *Handler) ownAccount(w http.ResponseWriter, r *http.Request, action string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, action+": bad id", err, "Invalid user ID.")
		return id, false
	}
	if !authz.IsSelf(r, id) {
		h.ErrLog.LogForbidden(w, r, action+": not the account owner", "You can only "+action+" your own account")
		return id, false
	}
	return id, true
}

func (h *Handler) readUpdate(w http.ResponseWriter, r *http.Request) (updateInput, bool) {
	var in updateInput
	if !isMultipart(r) {
		if err := decodeJSON(w, r, &in); err != nil {
			h.ErrLog.LogBadRequest(w, r, "update: bad body", err, "Invalid request body.")
			return in, false
		}
		return in, true
	}

	if err := parseMultipart(w, r); err != nil {
		h.ErrLog.LogBadRequest(w, r, "update: parse form failed", err, "Invalid form data.")
		return in, false
	}
	// Blank text fields in a form mean "unchanged".
	for key, dst := range map[string]**string{"username": &in.Username, "email": &in.Email, "bio": &in.Bio} {
		if v := optString(r, key); v != nil && (*v != "" || key == "bio") {
			*dst = v
		}
	}
	if v := optString(r, "isPrivate"); v != nil && *v != "" {
		b, err := strconv.ParseBool(*v)
		if err != nil {
			h.ErrLog.LogBadRequest(w, r, "update: bad isPrivate", err, "isPrivate must be true or false.")
			return in, false
		}
		in.IsPrivate = &b
	}
	return in, true
}

// UpdateAccount handles PUT /updateAccount/{userId}.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownAccount(w, r, "update")
	if !ok {
		return
	}
	in, ok := h.readUpdate(w, r)
	if !ok {
		return
	}
	if in.Username != nil {
		clean := htmlsanitize.PlainText(*in.Username)
		in.Username = &clean
	}
	if in.Bio != nil {
		clean := htmlsanitize.PlainText(*in.Bio)
		in.Bio = &clean
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierrors.WriteMessage(w, http.StatusBadRequest, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	current, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update: load user failed", err)
		return
	}

	var email, username string
	if in.Email != nil {
		email = *in.Email
	}
	if in.Username != nil {
		username = *in.Username
	}
	taken, err := h.Users.IdentityTaken(ctx, email, username, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update: identity lookup failed", err)
		return
	}
	if taken {
		apierrors.WriteMessage(w, http.StatusBadRequest, "User already exists")
		return
	}

	upd := userstore.ProfileUpdate{Username: in.Username, Email: in.Email, Bio: in.Bio}

	file, header, err := profilePic(r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "update: read upload failed", err, "Invalid profile picture upload.")
		return
	}
	var uploaded mediastore.Uploaded
	if file != nil {
		defer file.Close()
		uploaded, err = mediastore.UploadAvatar(ctx, h.Media, file, header)
		if err != nil {
			if msg, ok := uploadErrorMessage(err); ok {
				apierrors.WriteMessage(w, http.StatusBadRequest, msg)
				return
			}
			h.ErrLog.LogServerError(w, r, "update: store avatar failed", err)
			return
		}
		upd.ProfilePicture = &uploaded.URL
		upd.ProfilePictureKey = &uploaded.Key
	}

	if err := h.Users.UpdateProfile(ctx, id, upd); err != nil {
		h.releaseAvatar(ctx, uploaded.Key)
		switch {
		case errors.Is(err, userstore.ErrDuplicateEmail), errors.Is(err, userstore.ErrDuplicateUsername):
			apierrors.WriteMessage(w, http.StatusBadRequest, "User already exists")
		case errors.Is(err, mongo.ErrNoDocuments):
			apierrors.WriteMessage(w, http.StatusNotFound, "User not found")
		default:
			h.ErrLog.LogServerError(w, r, "update: save profile failed", err)
		}
		return
	}
	if uploaded.Key != "" && current.ProfilePictureKey != "" {
		h.releaseAvatar(ctx, current.ProfilePictureKey)
	}

	if in.IsPrivate != nil && *in.IsPrivate != current.IsPrivate {
		if err := h.Graph.SetPrivacy(ctx, id, *in.IsPrivate); err != nil {
			h.ErrLog.Respond(w, r, "update: set privacy", err)
			return
		}
	}

	updated, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update: reload user failed", err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user": accountView{
			ID:             updated.ID.Hex(),
			Username:       updated.Username,
			Email:          updated.Email,
			Bio:            updated.Bio,
			ProfilePicture: updated.ProfilePicture,
			IsPrivate:      updated.IsPrivate,
		},
	})
}

// DeleteAccount handles DELETE /deleteAccount/{userId}.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownAccount(w, r, "delete")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	deleted, err := h.Graph.DeleteAccount(ctx, id)
	if err != nil {
		h.ErrLog.Respond(w, r, "delete account", err)
		return
	}
	h.releaseAvatar(ctx, deleted.ProfilePictureKey)

	h.Log.Info("user deleted", zap.String("user_id", id.Hex()))
	apierrors.WriteMessage(w, http.StatusOK, "User deleted successfully")
}
