package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/animelist/internal/app/system/normalize"
	"github.com/dalemusser/animelist/internal/app/system/paging"
	"github.com/dalemusser/animelist/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Relationship array fields on a user document.
const (
	FieldFollowers       = "followers"
	FieldFollowing       = "following"
	FieldPendingRequests = "pendingRequests"
	FieldBlockedUsers    = "blockedUsers"
)

var relationshipFields = []string{FieldFollowers, FieldFollowing, FieldPendingRequests, FieldBlockedUsers}

var (
	// ErrDuplicateEmail is returned when attempting to store an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrDuplicateUsername is returned when the folded username is already taken.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	// ErrAnimeAlreadyFavorite is returned when the anime id is already in the user's favorites.
	ErrAnimeAlreadyFavorite = errors.New("anime already in favorites")
	errBadField             = errors.New("unknown relationship field")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// dupErr maps a duplicate-key error to the sentinel for the violated index.
func dupErr(err error) error {
	if !wafflemongo.IsDup(err) {
		return err
	}
	if strings.Contains(err.Error(), "username_ci") {
		return ErrDuplicateUsername
	}
	return ErrDuplicateEmail
}

func validField(f string) bool {
	for _, v := range relationshipFields {
		if v == f {
			return true
		}
	}
	return false
}

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists reports whether a user with id exists.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IdentityTaken reports whether another user already holds the email or the
// (case-folded) username. excludeID may be NilObjectID.
func (s *Store) IdentityTaken(ctx context.Context, email, username string, excludeID primitive.ObjectID) (bool, error) {
	or := []bson.M{}
	if email != "" {
		or = append(or, bson.M{"email": normalize.Email(email)})
	}
	if username != "" {
		or = append(or, bson.M{"username_ci": normalize.UsernameCI(username)})
	}
	if len(or) == 0 {
		return false, nil
	}
	filter := bson.M{"$or": or}
	if !excludeID.IsZero() {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	err := s.c.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// Create inserts a new user after normalizing fields and applying defaults
// (empty relationship sets, public profile, default picture).
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.UsernameCI = normalize.UsernameCI(u.Username)
	u.Email = normalize.Email(u.Email)
	u.Bio = normalize.Bio(u.Bio)
	if u.ProfilePicture == "" {
		u.ProfilePicture = models.DefaultProfilePicture
	}
	if u.FavoriteAnimes == nil {
		u.FavoriteAnimes = []models.FavoriteAnime{}
	}
	u.Followers = []primitive.ObjectID{}
	u.Following = []primitive.ObjectID{}
	u.PendingRequests = []primitive.ObjectID{}
	u.BlockedUsers = []primitive.ObjectID{}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.User{}, dupErr(err)
	}
	return u, nil
}

// AddToSet adds value to one relationship array of user id. modified is false
// when the user does not exist or already held value.
func (s *Store) AddToSet(ctx context.Context, id primitive.ObjectID, field string, value primitive.ObjectID) (modified bool, err error) {
	if !validField(field) {
		return false, errBadField
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{field: value}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Pull removes value from one relationship array of user id. modified is false
// when nothing was removed.
func (s *Store) Pull(ctx context.Context, id primitive.ObjectID, field string, value primitive.ObjectID) (modified bool, err error) {
	if !validField(field) {
		return false, errBadField
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{field: value}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// PullFromAll removes value from every relationship array of every user.
func (s *Store) PullFromAll(ctx context.Context, value primitive.ObjectID) (int64, error) {
	or := make([]bson.M, 0, len(relationshipFields))
	pull := bson.M{}
	for _, f := range relationshipFields {
		or = append(or, bson.M{f: value})
		pull[f] = value
	}
	res, err := s.c.UpdateMany(ctx, bson.M{"$or": or}, bson.M{"$pull": pull})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SetPrivacy persists the isPrivate flag. found is false when the user does not exist.
func (s *Store) SetPrivacy(ctx context.Context, id primitive.ObjectID, isPrivate bool) (found bool, err error) {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"isPrivate":  isPrivate,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// ClearPendingRequests empties the user's pendingRequests and returns the ids
// that were pending.
func (s *Store) ClearPendingRequests(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	var before struct {
		PendingRequests []primitive.ObjectID `bson:"pendingRequests"`
	}
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{FieldPendingRequests: []primitive.ObjectID{}}},
		options.FindOneAndUpdate().
			SetProjection(bson.M{FieldPendingRequests: 1}).
			SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return nil, err
	}
	return before.PendingRequests, nil
}

// ProfileUpdate holds the optional profile fields of an account update.
// Nil fields are left unchanged.
type ProfileUpdate struct {
	Username          *string
	Email             *string
	Bio               *string
	ProfilePicture    *string
	ProfilePictureKey *string
}

// UpdateProfile applies upd. Returns mongo.ErrNoDocuments when the user does
// not exist, ErrDuplicateEmail/ErrDuplicateUsername on collisions.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Username != nil {
		set["username"] = normalize.Username(*upd.Username)
		set["username_ci"] = normalize.UsernameCI(*upd.Username)
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.Bio != nil {
		set["bio"] = normalize.Bio(*upd.Bio)
	}
	if upd.ProfilePicture != nil {
		set["profilePicture"] = *upd.ProfilePicture
	}
	if upd.ProfilePictureKey != nil {
		set["profilePictureKey"] = *upd.ProfilePictureKey
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return dupErr(err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a user document. Returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

/* -------------------------------------------------------------------------- */
/* Favorites                                                                  */
/* -------------------------------------------------------------------------- */

// AddFavoriteAnime appends anime unless an entry with the same id exists.
// Returns mongo.ErrNoDocuments for an unknown user and ErrAnimeAlreadyFavorite
// for a duplicate.
func (s *Store) AddFavoriteAnime(ctx context.Context, id primitive.ObjectID, anime models.FavoriteAnime) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "favoriteAnimes.id": bson.M{"$ne": anime.ID}},
		bson.M{"$push": bson.M{"favoriteAnimes": anime}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return mongo.ErrNoDocuments
	}
	return ErrAnimeAlreadyFavorite
}

// RemoveFavoriteAnime pulls the entry with animeID. removed is false when the
// user had no such entry.
func (s *Store) RemoveFavoriteAnime(ctx context.Context, id primitive.ObjectID, animeID int) (removed bool, err error) {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"favoriteAnimes": bson.M{"id": animeID}}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, mongo.ErrNoDocuments
	}
	return res.ModifiedCount > 0, nil
}

/* -------------------------------------------------------------------------- */
/* Listing                                                                    */
/* -------------------------------------------------------------------------- */

// ListOptions selects one page of user summaries ordered by folded username.
type ListOptions struct {
	// Search prefix-matches the folded username when set.
	Search string
	// IDs restricts the page to these users when non-nil (an empty slice yields no rows).
	IDs   []primitive.ObjectID
	After string
	Limit int
}

// Page is one keyset page of user summaries.
type Page struct {
	Users      []models.UserSummary
	NextCursor string
	HasMore    bool
}

// List returns one page of user summaries.
func (s *Store) List(ctx context.Context, opt ListOptions) (Page, error) {
	if opt.Limit <= 0 {
		opt.Limit = paging.PageSize
	}
	if opt.IDs != nil && len(opt.IDs) == 0 {
		return Page{Users: []models.UserSummary{}}, nil
	}

	filter := bson.M{}
	if opt.IDs != nil {
		filter["_id"] = bson.M{"$in": opt.IDs}
	}
	if q := normalize.Search(opt.Search); q != "" {
		filter["username_ci"] = bson.M{"$gte": q, "$lt": q + "\uffff"}
	}
	if w := paging.NameWindow("username_ci", opt.After); w != nil {
		filter = bson.M{"$and": []bson.M{filter, w}}
	}

	find := options.Find().
		SetSort(bson.D{{Key: "username_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(opt.Limit + 1)).
		SetProjection(bson.M{"username": 1, "username_ci": 1, "profilePicture": 1, "bio": 1, "isPrivate": 1})

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	rows := []models.UserSummary{}
	if err := cur.All(ctx, &rows); err != nil {
		return Page{}, err
	}

	page := Page{Users: rows}
	page.HasMore = paging.TrimPage(&page.Users, opt.Limit)
	if page.HasMore {
		last := page.Users[len(page.Users)-1]
		page.NextCursor = paging.NameCursor(last.UsernameCI, last.ID)
	}
	return page, nil
}
