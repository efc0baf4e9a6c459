// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minJWTSecret is the shortest signing key accepted outside dev.
const minJWTSecret = 32

// appConfigKeys defines the configuration keys for the anime list API.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: ANIMELIST_MONGO_URI, ANIMELIST_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "animelist", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Access token signing key (must be strong in production)"},
	{Name: "jwt_ttl", Default: "1h", Desc: "Access token lifetime (e.g., 1h, 30m)"},

	{Name: "cors_allowed_origins", Default: "*", Desc: "Comma-separated list of allowed CORS origins"},

	// Profile picture storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for profile pictures"},
	{Name: "storage_local_url", Default: "/uploads", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "profile/", Desc: "S3 key prefix"},
	{Name: "storage_s3_public_url", Default: "", Desc: "Public base URL for stored objects (CDN)"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "Custom S3 endpoint (MinIO and other S3-compatible stores)"},

	// Activity retention
	{Name: "retention_enabled", Default: true, Desc: "Run the monthly activity retention sweep"},
	{Name: "retention_months", Default: 1, Desc: "Delete activities older than this many months"},

	// Optional backends
	{Name: "nats_url", Default: "", Desc: "NATS server URL for social events (blank disables)"},
	{Name: "redis_addr", Default: "", Desc: "Redis address for shared rate-limit counters (blank uses memory)"},
	{Name: "otel_endpoint", Default: "", Desc: "OTLP/gRPC collector endpoint (blank disables tracing)"},

	// Login rate limits
	{Name: "login_rate_ip", Default: 10, Desc: "Login/register attempts per minute per IP"},
	{Name: "login_rate_email", Default: 5, Desc: "Login attempts per 5 minutes per email"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config.yaml/json/toml
// files, environment variables (WAFFLE_* for core, ANIMELIST_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ANIMELIST", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTTTL:    appValues.Duration("jwt_ttl", time.Hour),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		StorageType:        appValues.String("storage_type"),
		StorageLocalPath:   appValues.String("storage_local_path"),
		StorageLocalURL:    appValues.String("storage_local_url"),
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageS3PublicURL: appValues.String("storage_s3_public_url"),
		StorageS3Endpoint:  appValues.String("storage_s3_endpoint"),

		RetentionEnabled: appValues.Bool("retention_enabled"),
		RetentionMonths:  appValues.Int("retention_months"),

		NatsURL:      appValues.String("nats_url"),
		RedisAddr:    appValues.String("redis_addr"),
		OtelEndpoint: appValues.String("otel_endpoint"),

		LoginRateIP:    appValues.Int("login_rate_ip"),
		LoginRateEmail: appValues.Int("login_rate_email"),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked before connecting; the token secret and
// storage settings must be usable before any handler is built.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	if coreCfg.Env != "dev" && len(appCfg.JWTSecret) < minJWTSecret {
		return fmt.Errorf("jwt_secret must be at least %d bytes outside dev", minJWTSecret)
	}
	if appCfg.JWTTTL <= 0 {
		return fmt.Errorf("jwt_ttl must be positive")
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" || appCfg.StorageLocalURL == "" {
			return fmt.Errorf("storage_type=local requires storage_local_path and storage_local_url")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_bucket and storage_s3_region")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType)
	}

	if appCfg.RetentionEnabled && appCfg.RetentionMonths < 1 {
		return fmt.Errorf("retention_months must be at least 1")
	}
	if appCfg.LoginRateIP < 1 || appCfg.LoginRateEmail < 1 {
		return fmt.Errorf("login_rate_ip and login_rate_email must be at least 1")
	}

	return nil
}
