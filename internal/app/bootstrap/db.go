// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/animelist/internal/app/system/events"
	"github.com/dalemusser/animelist/internal/app/system/indexes"
	"github.com/dalemusser/animelist/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// ConnectDB connects MongoDB and the optional Redis and NATS backends.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(appCfg.MongoURI)
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	if appCfg.MongoMinPoolSize > 0 {
		opts.SetMinPoolSize(appCfg.MongoMinPoolSize)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		AnimeListMongoClient:   client,
		AnimeListMongoDatabase: client.Database(appCfg.MongoDatabase),
		Events:                 events.Nop{},
	}

	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: appCfg.RedisAddr})
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			logger.Warn("redis tracing instrumentation failed", zap.Error(err))
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("ping Redis at %s: %w", appCfg.RedisAddr, err)
		}
		deps.Redis = rdb
		logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr))
	}

	if appCfg.NatsURL != "" {
		pub, err := events.NewNatsPublisher(ctx, appCfg.NatsURL)
		if err != nil {
			if deps.Redis != nil {
				_ = deps.Redis.Close()
			}
			_ = client.Disconnect(context.Background())
			return DBDeps{}, err
		}
		deps.Events = pub
		logger.Info("publishing social events to NATS", zap.String("url", appCfg.NatsURL))
	}

	return deps, nil
}

// EnsureSchema attaches the collection validators and creates the indexes.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, deps.AnimeListMongoDatabase); err != nil {
		logger.Error("ensure validators failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, deps.AnimeListMongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
