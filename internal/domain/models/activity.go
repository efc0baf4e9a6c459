// internal/domain/models/activity.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity types.
const (
	ActivityFollow           = "follow"           // UserID now follows TargetUserID
	ActivityFollowRequest    = "followRequest"    // UserID asked to follow private TargetUserID
	ActivityAddFavoriteAnime = "addFavoriteAnime" // UserID favorited AnimeID
)

// Activity is an immutable event record in the activities collection.
//
// Variant fields depend on Type:
//   - follow, followRequest: TargetUserID
//   - addFavoriteAnime: AnimeID, AnimeTitle, AnimeImage
//
// MainName/MainPfp are a snapshot of the actor taken when the event was
// recorded. The feed replaces them with live profile data when it can.
type Activity struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID  `bson:"userId" json:"userId"`
	Type         string              `bson:"type" json:"type"`
	TargetUserID *primitive.ObjectID `bson:"targetUserId,omitempty" json:"targetUserId,omitempty"`

	AnimeID    int         `bson:"animeId,omitempty" json:"animeId,omitempty"`
	AnimeTitle *AnimeTitle `bson:"animeTitle,omitempty" json:"animeTitle,omitempty"`
	AnimeImage string      `bson:"animeImage,omitempty" json:"animeImage,omitempty"`

	MainName string `bson:"mainName" json:"mainName"`
	MainPfp  string `bson:"mainPfp" json:"mainPfp"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// IsValidActivityType reports whether t is one of the known activity types.
func IsValidActivityType(t string) bool {
	switch t {
	case ActivityFollow, ActivityFollowRequest, ActivityAddFavoriteAnime:
		return true
	}
	return false
}
