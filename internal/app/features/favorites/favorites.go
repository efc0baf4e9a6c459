// internal/app/features/favorites/favorites.go
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	userstore "github.com/dalemusser/animelist/internal/app/store/users"
	"github.com/dalemusser/animelist/internal/app/system/authz"
	"github.com/dalemusser/animelist/internal/app/system/events"
	"github.com/dalemusser/animelist/internal/app/system/inputval"
	"github.com/dalemusser/animelist/internal/app/system/limits"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"github.com/dalemusser/animelist/internal/app/system/txn"
	"github.com/dalemusser/animelist/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// animeInput is the catalog entry sent by the client. coverImage arrives
// either as a URL string or as the catalog's {large, medium} object.
type animeInput struct {
	ID           int               `json:"id" validate:"required,gt=0" label:"Anime ID"`
	Title        models.AnimeTitle `json:"title"`
	CoverImage   coverImage        `json:"coverImage"`
	AverageScore *int              `json:"averageScore" validate:"omitnil,gte=0,lte=100" label:"Average score"`
	Status       string            `json:"status" validate:"max=40" label:"Status"`
}

type coverImage string

func (c *coverImage) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = coverImage(s)
		return nil
	}
	var obj struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("coverImage: %w", err)
	}
	if obj.Medium != "" {
		*c = coverImage(obj.Medium)
	} else {
		*c = coverImage(obj.Large)
	}
	return nil
}

type addInput struct {
	Anime animeInput `json:"anime"`
}

type removeInput struct {
	AnimeID int `json:"animeId" validate:"required,gt=0" label:"Anime ID"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxFavoriteBody)
	return json.NewDecoder(r.Body).Decode(v)
}

// AddFavoriteAnime handles POST /addFavoriteAnime. The anime is appended to
// the caller's favorites and an addFavoriteAnime activity is recorded in the
// same transaction.
func (h *Handler) AddFavoriteAnime(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserID(r)
	if !ok {
		apierrors.WriteMessage(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}
	var in addInput
	if err := decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "addFavoriteAnime: bad body", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierrors.WriteMessage(w, http.StatusBadRequest, res.First())
		return
	}

	anime := models.FavoriteAnime{
		ID:           in.Anime.ID,
		Title:        in.Anime.Title,
		CoverImage:   string(in.Anime.CoverImage),
		AverageScore: in.Anime.AverageScore,
		Status:       in.Anime.Status,
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		u, err := h.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := h.Users.AddFavoriteAnime(ctx, userID, anime); err != nil {
			return err
		}
		title := anime.Title
		_, err = h.Activities.Create(ctx, models.Activity{
			UserID:     userID,
			Type:       models.ActivityAddFavoriteAnime,
			AnimeID:    anime.ID,
			AnimeTitle: &title,
			AnimeImage: anime.CoverImage,
			MainName:   u.Username,
			MainPfp:    u.ProfilePicture,
		})
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrAnimeAlreadyFavorite):
		apierrors.WriteMessage(w, http.StatusBadRequest, "Anime already in favorites")
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		apierrors.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	default:
		h.ErrLog.LogServerError(w, r, "addFavoriteAnime failed", err)
		return
	}

	if err := h.Events.Publish(ctx, events.Event{
		Type:    events.TypeFavoriteAdded,
		ActorID: userID.Hex(),
		AnimeID: anime.ID,
		At:      time.Now().UTC(),
	}); err != nil {
		h.Log.Warn("publish favorite event failed", zap.Error(err))
	}
	apierrors.WriteMessage(w, http.StatusOK, "Anime added to favorites successfully")
}

// RemoveAnime handles POST /removeAnime.
func (h *Handler) RemoveAnime(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserID(r)
	if !ok {
		apierrors.WriteMessage(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}
	var in removeInput
	if err := decode(w, r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "removeAnime: bad body", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		apierrors.WriteMessage(w, http.StatusBadRequest, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	removed, err := h.Users.RemoveFavoriteAnime(ctx, userID, in.AnimeID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "removeAnime failed", err)
		return
	}
	if !removed {
		apierrors.WriteMessage(w, http.StatusBadRequest, "Anime not found.")
		return
	}
	apierrors.WriteMessage(w, http.StatusOK, "Anime removed from the list.")
}

// GetFavoriteAnimes handles GET /getFavoriteAnimes/{userId}.
func (h *Handler) GetFavoriteAnimes(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "getFavoriteAnimes: bad id", err, "Invalid user ID.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.WriteMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "getFavoriteAnimes failed", err)
		return
	}
	favs := u.FavoriteAnimes
	if favs == nil {
		favs = []models.FavoriteAnime{}
	}
	apierrors.WriteJSON(w, http.StatusOK, map[string]any{"favoriteAnimes": favs})
}
