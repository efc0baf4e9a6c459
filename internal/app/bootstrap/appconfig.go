// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level, body limits); everything
// specific to the anime list API lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Access tokens
	JWTSecret string        // HS256 signing key (at least 32 bytes outside dev)
	JWTTTL    time.Duration // token lifetime

	// CORS
	CORSAllowedOrigins []string

	// Profile picture storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string // directory for local uploads (e.g., "./uploads")
	StorageLocalURL  string // URL prefix local uploads are served under (e.g., "/uploads")

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string // key prefix (e.g., "profile/")
	StorageS3PublicURL string // public base URL (CDN or bucket website); blank uses the virtual-hosted bucket URL
	StorageS3Endpoint  string // custom endpoint for S3-compatible stores (MinIO)

	// Activity retention
	RetentionEnabled bool
	RetentionMonths  int // activities older than this many calendar months are purged

	// Optional backends; empty disables them.
	NatsURL      string // domain events (JetStream)
	RedisAddr    string // shared login rate-limit counters
	OtelEndpoint string // OTLP/gRPC trace collector

	// Login rate limits
	LoginRateIP    int // attempts per minute per client IP
	LoginRateEmail int // attempts per 5 minutes per email
}
