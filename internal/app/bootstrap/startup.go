// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	activitystore "github.com/dalemusser/animelist/internal/app/store/activity"
	"github.com/dalemusser/animelist/internal/app/system/tasks"
	"github.com/dalemusser/animelist/internal/app/system/timeouts"
	"github.com/dalemusser/animelist/internal/app/system/tracing"
	"github.com/dalemusser/animelist/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Process-wide services started in Startup and stopped in Shutdown.
var (
	sweeper     *workers.Runner
	stopTracing tracing.Shutdown
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built: handler
// timeouts, the tracer provider and the activity retention sweeper.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	shutdown, err := tracing.Init(ctx, appCfg.OtelEndpoint, coreCfg.Env, logger)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
		return err
	}
	stopTracing = shutdown

	if appCfg.RetentionEnabled {
		job := tasks.ActivityRetentionJob(
			activitystore.New(deps.AnimeListMongoDatabase),
			logger,
			appCfg.RetentionMonths,
			func() time.Time { return time.Now().UTC() },
		)
		sweeper = workers.NewRunner(job, logger, workers.WithRunOnStart())
		sweeper.Start()
		logger.Info("activity retention sweeper started", zap.Int("months", appCfg.RetentionMonths))
	}
	return nil
}
