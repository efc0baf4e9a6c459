// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/animelist/internal/app/system/events"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	AnimeListMongoClient   *mongo.Client
	AnimeListMongoDatabase *mongo.Database

	// Redis is nil when redis_addr is not configured.
	Redis *redis.Client
	// Events is never nil; it is events.Nop when nats_url is not configured.
	Events events.Publisher
}
