// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work and tears down backend connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if sweeper != nil {
		sweeper.Stop()
		sweeper = nil
	}
	if stopTracing != nil {
		if err := stopTracing(ctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
		stopTracing = nil
	}
	if deps.Events != nil {
		if err := deps.Events.Close(); err != nil {
			logger.Warn("event publisher close failed", zap.Error(err))
		}
	}
	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Warn("Redis close failed", zap.Error(err))
		}
	}
	if deps.AnimeListMongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.AnimeListMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
