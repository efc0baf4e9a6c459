// Package events publishes social graph events for other services
// (notifications, analytics) to consume.
package events

import (
	"context"
	"time"
)

// Event types. Subjects are "social." + type.
const (
	TypeFollow          = "follow"
	TypeFollowRequest   = "followRequest"
	TypeUnfollow        = "unfollow"
	TypeBlock           = "block"
	TypeUnblock         = "unblock"
	TypeRequestAccepted = "requestAccepted"
	TypeRequestRejected = "requestRejected"
	TypePrivacyChanged  = "privacyChanged"
	TypeAccountDeleted  = "accountDeleted"
	TypeFavoriteAdded   = "favoriteAdded"
)

// SubjectPrefix scopes every subject this app publishes.
const SubjectPrefix = "social."

// Event is the JSON payload published for a committed social graph change.
type Event struct {
	Type     string    `json:"type"`
	ActorID  string    `json:"actorId"`
	TargetID string    `json:"targetId,omitempty"`
	AnimeID  int       `json:"animeId,omitempty"`
	At       time.Time `json:"at"`
}

// Subject returns the subject the event is published on.
func (e Event) Subject() string { return SubjectPrefix + e.Type }

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
