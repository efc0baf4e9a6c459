// internal/app/features/accounts/register.go
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	userstore "github.com/dalemusser/animelist/internal/app/store/users"
	"github.com/dalemusser/animelist/internal/app/system/htmlsanitize"
	"github.com/dalemusser/animelist/internal/app/system/inputval"
	"github.com/dalemusser/animelist/internal/app/system/mediastore"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"github.com/dalemusser/animelist/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// registerInput is the validated registration body.
type registerInput struct {
	Username       string                 `json:"username" validate:"required,username" label:"Username"`
	Email          string                 `json:"email" validate:"required,email,max=254" label:"Email"`
	Password       string                 `json:"password" validate:"required,min=8,max=72" label:"Password"`
	FavoriteAnimes []models.FavoriteAnime `json:"favoriteAnimes" validate:"omitempty,max=500,dive" label:"Favorite animes"`
}

// uniqueFavorites drops entries repeating an earlier anime id.
func uniqueFavorites(in []models.FavoriteAnime) []models.FavoriteAnime {
	out := make([]models.FavoriteAnime, 0, len(in))
	seen := make(map[int]bool, len(in))
	for _, a := range in {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	return out
}

// Register handles POST /register (JSON or multipart with an optional
// "profilePic" file).
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if ok, msg := h.Limiter.CheckRegister(r); !ok {
		apierrors.WriteMessage(w, http.StatusTooManyRequests, msg)
		return
	}

	var in registerInput
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			h.ErrLog.LogBadRequest(w, r, "register: parse form failed", err, "Invalid form data.")
			return
		}
		in.Username = r.FormValue("username")
		in.Email = r.FormValue("email")
		in.Password = r.FormValue("password")
		if raw := r.FormValue("favoriteAnimes"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &in.FavoriteAnimes); err != nil {
				h.ErrLog.LogBadRequest(w, r, "register: bad favoriteAnimes", err, "Favorite animes must be a JSON array.")
				return
			}
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "register: bad body", err, "Invalid request body.")
		return
	}

	in.Username = htmlsanitize.PlainText(in.Username)
	if res := inputval.Validate(in); res.HasErrors() {
		apierrors.WriteMessage(w, http.StatusBadRequest, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	taken, err := h.Users.IdentityTaken(ctx, in.Email, in.Username, primitive.NilObjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: identity lookup failed", err)
		return
	}
	if taken {
		apierrors.WriteMessage(w, http.StatusBadRequest, "User already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "register: hash password failed", err)
		return
	}

	u := models.User{
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   string(hash),
		FavoriteAnimes: uniqueFavorites(in.FavoriteAnimes),
	}

	file, header, err := profilePic(r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "register: read upload failed", err, "Invalid profile picture upload.")
		return
	}
	if file != nil {
		defer file.Close()
		up, err := mediastore.UploadAvatar(ctx, h.Media, file, header)
		if err != nil {
			if msg, ok := uploadErrorMessage(err); ok {
				apierrors.WriteMessage(w, http.StatusBadRequest, msg)
				return
			}
			h.ErrLog.LogServerError(w, r, "register: store avatar failed", err)
			return
		}
		u.ProfilePicture = up.URL
		u.ProfilePictureKey = up.Key
	}

	created, err := h.Users.Create(ctx, u)
	if err != nil {
		h.releaseAvatar(ctx, u.ProfilePictureKey)
		if errors.Is(err, userstore.ErrDuplicateEmail) || errors.Is(err, userstore.ErrDuplicateUsername) {
			apierrors.WriteMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		h.ErrLog.LogServerError(w, r, "register: create user failed", err)
		return
	}

	h.Log.Info("user registered", zap.String("user_id", created.ID.Hex()))
	apierrors.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "User was registered successfully",
		"userId":  created.ID.Hex(),
	})
}

// releaseAvatar deletes an uploaded avatar that is no longer referenced.
func (h *Handler) releaseAvatar(ctx context.Context, key string) {
	if err := mediastore.DeleteAvatar(ctx, h.Media, key); err != nil {
		h.Log.Warn("delete profile picture failed", zap.String("key", key), zap.Error(err))
	}
}
