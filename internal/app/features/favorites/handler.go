// internal/app/features/favorites/handler.go
package favorites

import (
	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	activitystore "github.com/dalemusser/animelist/internal/app/store/activity"
	userstore "github.com/dalemusser/animelist/internal/app/store/users"
	"github.com/dalemusser/animelist/internal/app/system/events"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves a user's favorite anime list.
type Handler struct {
	DB         *mongo.Database
	Users      *userstore.Store
	Activities *activitystore.Store
	Events     events.Publisher
	Log        *zap.Logger
	ErrLog     *apierrors.ErrorLogger
}

// NewHandler constructs a favorites Handler.
func NewHandler(db *mongo.Database, pub events.Publisher, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Handler{
		DB:         db,
		Users:      userstore.New(db),
		Activities: activitystore.New(db),
		Events:     pub,
		Log:        logger,
		ErrLog:     errLog,
	}
}
