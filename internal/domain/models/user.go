// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultProfilePicture is assigned to accounts registered without an upload.
const DefaultProfilePicture = "https://static.vecteezy.com/system/resources/previews/009/292/244/original/default-avatar-icon-of-social-media-user-vector.jpg"

// User is an account plus its social state.
//
// NOTE:
//   - followers/following are two halves of one edge and must stay symmetric
//     across the two user documents. Only the socialgraph service writes them.
//   - blockedUsers is mutual: a block appears in both parties' lists.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	UsernameCI   string             `bson:"username_ci" json:"-"` // folded for sort/search
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`

	ProfilePicture    string `bson:"profilePicture" json:"profilePicture"`
	ProfilePictureKey string `bson:"profilePictureKey,omitempty" json:"-"` // storage key when uploaded
	Bio               string `bson:"bio" json:"bio"`

	FavoriteAnimes []FavoriteAnime `bson:"favoriteAnimes" json:"favoriteAnimes"`

	Followers       []primitive.ObjectID `bson:"followers" json:"followers"`
	Following       []primitive.ObjectID `bson:"following" json:"following"`
	PendingRequests []primitive.ObjectID `bson:"pendingRequests" json:"pendingRequests"`
	BlockedUsers    []primitive.ObjectID `bson:"blockedUsers" json:"blockedUsers"`
	IsPrivate       bool                 `bson:"isPrivate" json:"isPrivate"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// FavoriteAnime is a catalog entry copied onto the user when favorited.
// ID is the external catalog id; a user holds each ID at most once.
type FavoriteAnime struct {
	ID           int        `bson:"id" json:"id"`
	Title        AnimeTitle `bson:"title" json:"title"`
	CoverImage   string     `bson:"coverImage" json:"coverImage"`
	AverageScore *int       `bson:"averageScore,omitempty" json:"averageScore,omitempty"`
	Status       string     `bson:"status,omitempty" json:"status,omitempty"`
}

// AnimeTitle holds the catalog's romanized and English titles.
type AnimeTitle struct {
	Romaji  string `bson:"romaji,omitempty" json:"romaji,omitempty"`
	English string `bson:"english,omitempty" json:"english,omitempty"`
}

// Contains reports whether id is present in ids.
func Contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// UserSummary is the public card shown in user listings and connection lists.
type UserSummary struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Username       string             `bson:"username" json:"username"`
	UsernameCI     string             `bson:"username_ci" json:"-"`
	ProfilePicture string             `bson:"profilePicture" json:"profilePicture"`
	Bio            string             `bson:"bio" json:"bio"`
	IsPrivate      bool               `bson:"isPrivate" json:"isPrivate"`
}
