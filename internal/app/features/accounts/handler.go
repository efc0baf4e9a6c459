// internal/app/features/accounts/handler.go
package accounts

import (
	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	loginstore "github.com/dalemusser/animelist/internal/app/store/logins"
	userstore "github.com/dalemusser/animelist/internal/app/store/users"
	"github.com/dalemusser/animelist/internal/app/system/auth"
	"github.com/dalemusser/animelist/internal/app/system/mediastore"
	"github.com/dalemusser/animelist/internal/app/system/ratelimit"
	"github.com/dalemusser/animelist/internal/app/system/socialgraph"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns registration, login and account management.
type Handler struct {
	DB      *mongo.Database
	Users   *userstore.Store
	Logins  *loginstore.Store
	Graph   *socialgraph.Service
	Tokens  *auth.TokenManager
	Media   mediastore.Store
	Limiter *ratelimit.AuthLimiter
	Log     *zap.Logger
	ErrLog  *apierrors.ErrorLogger
}

// NewHandler constructs an accounts Handler.
func NewHandler(
	db *mongo.Database,
	graph *socialgraph.Service,
	tokens *auth.TokenManager,
	media mediastore.Store,
	limiter *ratelimit.AuthLimiter,
	errLog *apierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:      db,
		Users:   userstore.New(db),
		Logins:  loginstore.New(db),
		Graph:   graph,
		Tokens:  tokens,
		Media:   media,
		Limiter: limiter,
		Log:     logger,
		ErrLog:  errLog,
	}
}
