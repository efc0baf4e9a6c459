// Package socialgraph owns every write to the follow, request and block
// relationships between users, and the activity records that mirror them.
//
// Each operation runs inside txn.Run so the edits to both user documents and
// the activities collection commit or abort together. Events are published
// only after the transaction commits.
package socialgraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	activitystore "github.com/dalemusser/animelist/internal/app/store/activity"
	loginstore "github.com/dalemusser/animelist/internal/app/store/logins"
	userstore "github.com/dalemusser/animelist/internal/app/store/users"
	"github.com/dalemusser/animelist/internal/app/system/events"
	"github.com/dalemusser/animelist/internal/app/system/tracing"
	"github.com/dalemusser/animelist/internal/app/system/txn"
	"github.com/dalemusser/animelist/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FollowOutcome distinguishes a completed follow from a request sent to a
// private account.
type FollowOutcome int

const (
	Followed FollowOutcome = iota + 1
	Requested
)

// Service mutates the social graph.
type Service struct {
	db         *mongo.Database
	users      *userstore.Store
	activities *activitystore.Store
	logins     *loginstore.Store
	events     events.Publisher
	logger     *zap.Logger
}

// New creates a Service. A nil publisher disables events.
func New(db *mongo.Database, pub events.Publisher, logger *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		db:         db,
		users:      userstore.New(db),
		activities: activitystore.New(db),
		logins:     loginstore.New(db),
		events:     pub,
		logger:     logger,
	}
}

// span starts a span for op. The returned func ends it, recording *errp.
func (s *Service) span(ctx context.Context, op string, actor, target primitive.ObjectID) (context.Context, func(errp *error)) {
	attrs := []attribute.KeyValue{attribute.String("socialgraph.actor", actor.Hex())}
	if !target.IsZero() {
		attrs = append(attrs, attribute.String("socialgraph.target", target.Hex()))
	}
	ctx, sp := tracing.Tracer().Start(ctx, "socialgraph."+op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			sp.RecordError(err)
			if !IsRejection(err) {
				sp.SetStatus(codes.Error, err.Error())
			}
		}
		sp.End()
	}
}

func (s *Service) publish(ctx context.Context, typ string, actor, target primitive.ObjectID) {
	e := events.Event{Type: typ, ActorID: actor.Hex(), At: time.Now().UTC()}
	if !target.IsZero() {
		e.TargetID = target.Hex()
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("publish social event failed",
			zap.String("type", typ),
			zap.String("actor", e.ActorID),
			zap.Error(err))
	}
}

// loadUser maps a missing document to ErrNotFound with msg.
func (s *Service) loadUser(ctx context.Context, id primitive.ObjectID, msg string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fail(ErrNotFound, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id.Hex(), err)
	}
	return u, nil
}

// edgeActivity builds a follow/followRequest record with the actor snapshot.
func edgeActivity(typ string, actor *models.User, target primitive.ObjectID) models.Activity {
	t := target
	return models.Activity{
		UserID:       actor.ID,
		Type:         typ,
		TargetUserID: &t,
		MainName:     actor.Username,
		MainPfp:      actor.ProfilePicture,
	}
}

func blockedEitherWay(a, b *models.User) bool {
	return models.Contains(a.BlockedUsers, b.ID) || models.Contains(b.BlockedUsers, a.ID)
}

// Follow makes actor follow target, or files a follow request when target is
// private.
func (s *Service) Follow(ctx context.Context, actorID, targetID primitive.ObjectID) (outcome FollowOutcome, err error) {
	ctx, end := s.span(ctx, "Follow", actorID, targetID)
	defer end(&err)

	if actorID == targetID {
		return 0, fail(ErrSelfAction, "You cannot follow yourself")
	}

	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		actor, err := s.loadUser(ctx, actorID, "User not found")
		if err != nil {
			return err
		}
		target, err := s.loadUser(ctx, targetID, "User not found")
		if err != nil {
			return err
		}
		if blockedEitherWay(actor, target) {
			return fail(ErrForbidden, "You cannot follow this user")
		}
		if models.Contains(actor.Following, targetID) {
			return fail(ErrNoChange, "You already follow this user")
		}

		if target.IsPrivate {
			existing, err := s.activities.FindFollowRequest(ctx, actorID, targetID)
			if err != nil {
				return fmt.Errorf("find follow request: %w", err)
			}
			if existing != nil {
				return fail(ErrDuplicateRequest, "Follow request has already been sent.")
			}
			if _, err := s.users.AddToSet(ctx, targetID, userstore.FieldPendingRequests, actorID); err != nil {
				return fmt.Errorf("add pending request: %w", err)
			}
			if _, err := s.activities.Create(ctx, edgeActivity(models.ActivityFollowRequest, actor, targetID)); err != nil {
				if wafflemongo.IsDup(err) {
					return fail(ErrDuplicateRequest, "Follow request has already been sent.")
				}
				return fmt.Errorf("record follow request: %w", err)
			}
			outcome = Requested
			return nil
		}

		if _, err := s.users.AddToSet(ctx, actorID, userstore.FieldFollowing, targetID); err != nil {
			return fmt.Errorf("add following: %w", err)
		}
		if _, err := s.users.AddToSet(ctx, targetID, userstore.FieldFollowers, actorID); err != nil {
			return fmt.Errorf("add follower: %w", err)
		}
		if _, err := s.activities.Create(ctx, edgeActivity(models.ActivityFollow, actor, targetID)); err != nil {
			return fmt.Errorf("record follow: %w", err)
		}
		outcome = Followed
		return nil
	})
	if err != nil {
		return 0, err
	}

	if outcome == Requested {
		s.publish(ctx, events.TypeFollowRequest, actorID, targetID)
	} else {
		s.publish(ctx, events.TypeFollow, actorID, targetID)
	}
	return outcome, nil
}

// Unfollow removes the follow edge from actor to target and cancels any
// outstanding request from actor to target.
func (s *Service) Unfollow(ctx context.Context, actorID, targetID primitive.ObjectID) (err error) {
	ctx, end := s.span(ctx, "Unfollow", actorID, targetID)
	defer end(&err)

	if actorID == targetID {
		return fail(ErrSelfAction, "You cannot unfollow yourself")
	}

	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		if _, err := s.loadUser(ctx, targetID, "User not found"); err != nil {
			return err
		}
		following, err := s.users.Pull(ctx, actorID, userstore.FieldFollowing, targetID)
		if err != nil {
			return fmt.Errorf("pull following: %w", err)
		}
		follower, err := s.users.Pull(ctx, targetID, userstore.FieldFollowers, actorID)
		if err != nil {
			return fmt.Errorf("pull follower: %w", err)
		}
		pending, err := s.users.Pull(ctx, targetID, userstore.FieldPendingRequests, actorID)
		if err != nil {
			return fmt.Errorf("pull pending request: %w", err)
		}
		requests, err := s.activities.DeleteFollowRequestFrom(ctx, actorID, targetID)
		if err != nil {
			return fmt.Errorf("delete follow request: %w", err)
		}
		if !following && !follower && !pending && requests == 0 {
			return fail(ErrNoChange, "User not found or no changes were made")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TypeUnfollow, actorID, targetID)
	return nil
}

// Block clears every follow and request relationship between the pair in both
// directions, then records the block on both users.
func (s *Service) Block(ctx context.Context, actorID, targetID primitive.ObjectID) (err error) {
	ctx, end := s.span(ctx, "Block", actorID, targetID)
	defer end(&err)

	if actorID == targetID {
		return fail(ErrSelfAction, "You cannot block yourself")
	}

	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		if _, err := s.loadUser(ctx, actorID, "Current user not found"); err != nil {
			return err
		}
		if _, err := s.loadUser(ctx, targetID, "Target user not found"); err != nil {
			return err
		}

		for _, pair := range [][2]primitive.ObjectID{{actorID, targetID}, {targetID, actorID}} {
			for _, field := range []string{userstore.FieldFollowing, userstore.FieldFollowers, userstore.FieldPendingRequests} {
				if _, err := s.users.Pull(ctx, pair[0], field, pair[1]); err != nil {
					return fmt.Errorf("pull %s: %w", field, err)
				}
			}
		}
		if _, err := s.activities.DeleteFollowRequestsBetween(ctx, actorID, targetID); err != nil {
			return fmt.Errorf("delete follow requests: %w", err)
		}
		if _, err := s.users.AddToSet(ctx, actorID, userstore.FieldBlockedUsers, targetID); err != nil {
			return fmt.Errorf("add blocked: %w", err)
		}
		if _, err := s.users.AddToSet(ctx, targetID, userstore.FieldBlockedUsers, actorID); err != nil {
			return fmt.Errorf("add blocked: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TypeBlock, actorID, targetID)
	return nil
}

// Unblock removes the mutual block. Unblocking a user who is not blocked
// succeeds without changes.
func (s *Service) Unblock(ctx context.Context, actorID, targetID primitive.ObjectID) (err error) {
	ctx, end := s.span(ctx, "Unblock", actorID, targetID)
	defer end(&err)

	if actorID == targetID {
		return fail(ErrSelfAction, "You cannot unblock yourself")
	}

	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		if _, err := s.loadUser(ctx, actorID, "Current user not found"); err != nil {
			return err
		}
		if _, err := s.loadUser(ctx, targetID, "Target user not found"); err != nil {
			return err
		}
		if _, err := s.users.Pull(ctx, actorID, userstore.FieldBlockedUsers, targetID); err != nil {
			return fmt.Errorf("pull blocked: %w", err)
		}
		if _, err := s.users.Pull(ctx, targetID, userstore.FieldBlockedUsers, actorID); err != nil {
			return fmt.Errorf("pull blocked: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TypeUnblock, actorID, targetID)
	return nil
}

// loadRequest resolves requestID to a followRequest addressed to actor.
func (s *Service) loadRequest(ctx context.Context, actorID primitive.ObjectID, requestID string) (*models.Activity, error) {
	oid, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return nil, fail(ErrNotFound, "Follow request not found")
	}
	req, err := s.activities.GetByID(ctx, oid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fail(ErrNotFound, "Follow request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load follow request: %w", err)
	}
	if req.Type != models.ActivityFollowRequest || req.TargetUserID == nil {
		return nil, fail(ErrNotFound, "Follow request not found")
	}
	if *req.TargetUserID != actorID {
		return nil, fail(ErrForbidden, "You can only respond to follow requests sent to you")
	}
	return req, nil
}

// AcceptFollowRequest turns the pending request into a follow edge. actor must
// be the account the request was sent to.
func (s *Service) AcceptFollowRequest(ctx context.Context, actorID primitive.ObjectID, requestID string) (err error) {
	ctx, end := s.span(ctx, "AcceptFollowRequest", actorID, primitive.NilObjectID)
	defer end(&err)

	var requester primitive.ObjectID
	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		req, err := s.loadRequest(ctx, actorID, requestID)
		if err != nil {
			return err
		}
		requester = req.UserID

		following, err := s.users.AddToSet(ctx, requester, userstore.FieldFollowing, actorID)
		if err != nil {
			return fmt.Errorf("add following: %w", err)
		}
		follower, err := s.users.AddToSet(ctx, actorID, userstore.FieldFollowers, requester)
		if err != nil {
			return fmt.Errorf("add follower: %w", err)
		}
		if !following || !follower {
			return fail(ErrNoChange, "User not found or no changes were made")
		}

		if _, err := s.users.Pull(ctx, actorID, userstore.FieldPendingRequests, requester); err != nil {
			return fmt.Errorf("pull pending request: %w", err)
		}
		if _, err := s.activities.Delete(ctx, req.ID); err != nil {
			return fmt.Errorf("delete follow request: %w", err)
		}
		follow := models.Activity{
			UserID:       requester,
			Type:         models.ActivityFollow,
			TargetUserID: req.TargetUserID,
			MainName:     req.MainName,
			MainPfp:      req.MainPfp,
		}
		if _, err := s.activities.Create(ctx, follow); err != nil {
			return fmt.Errorf("record follow: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TypeRequestAccepted, actorID, requester)
	return nil
}

// RejectFollowRequest discards the pending request. actor must be the account
// the request was sent to.
func (s *Service) RejectFollowRequest(ctx context.Context, actorID primitive.ObjectID, requestID string) (err error) {
	ctx, end := s.span(ctx, "RejectFollowRequest", actorID, primitive.NilObjectID)
	defer end(&err)

	var requester primitive.ObjectID
	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		req, err := s.loadRequest(ctx, actorID, requestID)
		if err != nil {
			return err
		}
		requester = req.UserID

		n, err := s.activities.Delete(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("delete follow request: %w", err)
		}
		if n == 0 {
			return fail(ErrNotFound, "Follow request not found")
		}
		if _, err := s.users.Pull(ctx, actorID, userstore.FieldPendingRequests, requester); err != nil {
			return fmt.Errorf("pull pending request: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TypeRequestRejected, actorID, requester)
	return nil
}

// SetPrivacy stores the user's isPrivate flag. Making an account public drops
// the requests pending against it; requests the user sent to others are kept.
func (s *Service) SetPrivacy(ctx context.Context, userID primitive.ObjectID, isPrivate bool) (err error) {
	ctx, end := s.span(ctx, "SetPrivacy", userID, primitive.NilObjectID)
	defer end(&err)

	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		found, err := s.users.SetPrivacy(ctx, userID, isPrivate)
		if err != nil {
			return fmt.Errorf("set privacy: %w", err)
		}
		if !found {
			return fail(ErrNotFound, "User not found")
		}
		if isPrivate {
			return nil
		}
		if _, err := s.users.ClearPendingRequests(ctx, userID); err != nil {
			return fmt.Errorf("clear pending requests: %w", err)
		}
		if _, err := s.activities.DeleteFollowRequestsTo(ctx, userID); err != nil {
			return fmt.Errorf("delete follow requests: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.TypePrivacyChanged, userID, primitive.NilObjectID)
	return nil
}

// DeleteAccount removes the user, every reference to them in other users'
// relationship sets, and every activity they acted in or were the target of.
// It returns the deleted user so the caller can release stored media.
func (s *Service) DeleteAccount(ctx context.Context, userID primitive.ObjectID) (deleted *models.User, err error) {
	ctx, end := s.span(ctx, "DeleteAccount", userID, primitive.NilObjectID)
	defer end(&err)

	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		u, err := s.loadUser(ctx, userID, "User not found")
		if err != nil {
			return err
		}
		if _, err := s.users.PullFromAll(ctx, userID); err != nil {
			return fmt.Errorf("pull references: %w", err)
		}
		if _, err := s.activities.DeleteInvolving(ctx, userID); err != nil {
			return fmt.Errorf("delete activities: %w", err)
		}
		if _, err := s.logins.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete login records: %w", err)
		}
		if _, err := s.users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		deleted = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeAccountDeleted, userID, primitive.NilObjectID)
	return deleted, nil
}
