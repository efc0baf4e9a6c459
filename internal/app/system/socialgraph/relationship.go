package socialgraph

import (
	"context"

	"github.com/dalemusser/animelist/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// State is one direction of the relationship between two users.
type State string

const (
	StateNone      State = "none"
	StatePending   State = "pending"
	StateFollowing State = "following"
	StateBlocked   State = "blocked"
)

// Relationship describes viewer→other (State) and other→viewer (Incoming).
type Relationship struct {
	State    State `json:"state"`
	Incoming State `json:"incoming"`
}

// stateOf reports from's relationship toward to. A block overrides the rest.
func stateOf(from, to *models.User) State {
	switch {
	case blockedEitherWay(from, to):
		return StateBlocked
	case models.Contains(from.Following, to.ID):
		return StateFollowing
	case models.Contains(to.PendingRequests, from.ID):
		return StatePending
	}
	return StateNone
}

// Relationship reads the relationship between viewer and other in both directions.
func (s *Service) Relationship(ctx context.Context, viewerID, otherID primitive.ObjectID) (Relationship, error) {
	if viewerID == otherID {
		return Relationship{}, fail(ErrSelfAction, "You cannot view a relationship with yourself")
	}
	viewer, err := s.loadUser(ctx, viewerID, "User not found")
	if err != nil {
		return Relationship{}, err
	}
	other, err := s.loadUser(ctx, otherID, "User not found")
	if err != nil {
		return Relationship{}, err
	}
	return Relationship{State: stateOf(viewer, other), Incoming: stateOf(other, viewer)}, nil
}
