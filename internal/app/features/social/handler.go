// internal/app/features/social/handler.go
package social

import (
	apierrors "github.com/dalemusser/animelist/internal/app/features/errors"
	"github.com/dalemusser/animelist/internal/app/system/socialgraph"
	"go.uber.org/zap"
)

// Handler serves the follow, block and follow-request endpoints.
type Handler struct {
	Graph  *socialgraph.Service
	Log    *zap.Logger
	ErrLog *apierrors.ErrorLogger
}

// NewHandler constructs a Handler around the social graph service.
func NewHandler(graph *socialgraph.Service, errLog *apierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Graph:  graph,
		Log:    logger,
		ErrLog: errLog,
	}
}
