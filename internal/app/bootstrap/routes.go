// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	accountsfeature "github.com/dalemusser/animelist/internal/app/features/accounts"
	connectionsfeature "github.com/dalemusser/animelist/internal/app/features/connections"
	errorsfeature "github.com/dalemusser/animelist/internal/app/features/errors"
	favoritesfeature "github.com/dalemusser/animelist/internal/app/features/favorites"
	feedfeature "github.com/dalemusser/animelist/internal/app/features/feed"
	healthfeature "github.com/dalemusser/animelist/internal/app/features/health"
	socialfeature "github.com/dalemusser/animelist/internal/app/features/social"
	userstore "github.com/dalemusser/animelist/internal/app/store/users"
	"github.com/dalemusser/animelist/internal/app/system/auth"
	"github.com/dalemusser/animelist/internal/app/system/mediastore"
	"github.com/dalemusser/animelist/internal/app/system/ratelimit"
	"github.com/dalemusser/animelist/internal/app/system/socialgraph"
	"github.com/dalemusser/animelist/internal/app/system/tracing"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The API is JSON over HTTP with bearer
// tokens; every feature registers its endpoints at the root path.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.AnimeListMongoDatabase

	tm, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTTTL, logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}

	// The fetcher reloads the user on each request so deleted accounts and
	// renamed users take effect immediately.
	tm.SetUserFetcher(userstore.NewFetcher(db))

	media, err := buildMediaStore(appCfg)
	if err != nil {
		logger.Error("media store init failed", zap.Error(err))
		return nil, err
	}

	errLog := errorsfeature.NewErrorLogger(logger)
	graph := socialgraph.New(db, deps.Events, logger)

	r := chi.NewRouter()
	r.Use(tracing.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Global auth middleware: loads the bearer token's user into context.
	r.Use(tm.LoadUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.AnimeListMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Locally stored profile pictures
	if appCfg.StorageType == "local" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	// Accounts: register, login, lookup, update, delete
	accountsHandler := accountsfeature.NewHandler(db, graph, tm, media, buildAuthLimiter(appCfg, deps), errLog, logger)
	accountsfeature.Routes(r, accountsHandler, tm)

	// Social graph: follow, block, requests, relationship
	socialHandler := socialfeature.NewHandler(graph, errLog, logger)
	socialfeature.Routes(r, socialHandler, tm)

	// Favorites
	favoritesHandler := favoritesfeature.NewHandler(db, deps.Events, errLog, logger)
	favoritesfeature.Routes(r, favoritesHandler, tm)

	// Followers / following / blocked listings
	connectionsHandler := connectionsfeature.NewHandler(db, errLog, logger)
	connectionsfeature.Routes(r, connectionsHandler, tm)

	// Activity feed
	feedHandler := feedfeature.NewHandler(db, errLog, logger)
	feedfeature.Routes(r, feedHandler)

	return r, nil
}

func buildMediaStore(appCfg AppConfig) (mediastore.Store, error) {
	switch appCfg.StorageType {
	case "local":
		return mediastore.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return mediastore.NewS3(ctx, mediastore.S3Config{
			Region:    appCfg.StorageS3Region,
			Bucket:    appCfg.StorageS3Bucket,
			Prefix:    appCfg.StorageS3Prefix,
			PublicURL: appCfg.StorageS3PublicURL,
			Endpoint:  appCfg.StorageS3Endpoint,
		})
	}
	return nil, fmt.Errorf("unknown storage type %q", appCfg.StorageType)
}

// buildAuthLimiter shares counters through Redis when it is configured so
// limits hold across instances.
func buildAuthLimiter(appCfg AppConfig, deps DBDeps) *ratelimit.AuthLimiter {
	if deps.Redis == nil {
		return ratelimit.NewMemoryAuthLimiter(appCfg.LoginRateIP, appCfg.LoginRateEmail)
	}
	return ratelimit.NewAuthLimiter(
		ratelimit.NewRedisCounter(deps.Redis, "animelist:rl:", appCfg.LoginRateIP, time.Minute),
		ratelimit.NewRedisCounter(deps.Redis, "animelist:rl:", appCfg.LoginRateEmail, 5*time.Minute),
	)
}
