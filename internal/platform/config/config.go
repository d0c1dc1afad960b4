// Package config loads server configuration from BADGEPASS_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	pkgstrings "badgepass/pkg/platform/strings"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StoreMongo    = "mongo"
)

// Participant directory backends.
const (
	DirectoryMemory   = "memory"
	DirectoryHTTP     = "http"
	DirectoryPostgres = "postgres"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"BADGEPASS_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"BADGEPASS_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"BADGEPASS_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// AdminTokenHash is a bcrypt hash of the X-Admin-Token value.
	AdminTokenHash string `env:"BADGEPASS_ADMIN_TOKEN_HASH"`

	Store     StoreConfig
	Redis     RedisConfig
	Directory DirectoryConfig
	Scanner   ScannerConfig
	Audit     AuditConfig

	OTelEndpoint string `env:"BADGEPASS_OTEL_ENDPOINT"`
}

type StoreConfig struct {
	Backend       string        `env:"BADGEPASS_STORE" envDefault:"memory"`
	Timeout       time.Duration `env:"BADGEPASS_STORE_TIMEOUT" envDefault:"2s"`
	DatabaseURL   string        `env:"BADGEPASS_DATABASE_URL"`
	SQLitePath    string        `env:"BADGEPASS_SQLITE_PATH" envDefault:"badgepass.db"`
	MongoURI      string        `env:"BADGEPASS_MONGO_URI"`
	MongoDatabase string        `env:"BADGEPASS_MONGO_DATABASE" envDefault:"badgepass"`
}

// RedisConfig holds the redis client knobs used when the store backend is redis.
type RedisConfig struct {
	URL          string        `env:"BADGEPASS_REDIS_URL"`
	PoolSize     int           `env:"BADGEPASS_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"BADGEPASS_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"BADGEPASS_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"BADGEPASS_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"BADGEPASS_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type DirectoryConfig struct {
	Backend     string        `env:"BADGEPASS_DIRECTORY" envDefault:"memory"`
	URL         string        `env:"BADGEPASS_DIRECTORY_URL"`
	DatabaseURL string        `env:"BADGEPASS_DIRECTORY_DATABASE_URL"`
	HTTPTimeout time.Duration `env:"BADGEPASS_DIRECTORY_HTTP_TIMEOUT" envDefault:"2s"`
	// SeedJSON is a JSON array of participants loaded into the memory directory.
	SeedJSON string `env:"BADGEPASS_DIRECTORY_SEED"`
}

// ScannerConfig configures validation of scanner operator bearer tokens.
type ScannerConfig struct {
	JWTKey   string `env:"BADGEPASS_SCANNER_JWT_KEY"`
	Issuer   string `env:"BADGEPASS_SCANNER_JWT_ISSUER" envDefault:"badgepass"`
	Audience string `env:"BADGEPASS_SCANNER_JWT_AUDIENCE" envDefault:"badgepass-scanner"`

	// RateLimit is the number of scans one operator may submit per RateWindow.
	// Zero disables throttling.
	RateLimit  int           `env:"BADGEPASS_SCAN_RATE_LIMIT" envDefault:"120"`
	RateWindow time.Duration `env:"BADGEPASS_SCAN_RATE_WINDOW" envDefault:"1m"`
}

type AuditConfig struct {
	KafkaBrokers []string `env:"BADGEPASS_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"BADGEPASS_KAFKA_AUDIT_TOPIC" envDefault:"badgepass.audit"`
	// StreamOperations also sends routine check-ins to Kafka. Lifecycle
	// changes and rejected scans are always streamed.
	StreamOperations bool `env:"BADGEPASS_KAFKA_STREAM_CHECKINS" envDefault:"false"`
	Buffer           int  `env:"BADGEPASS_AUDIT_BUFFER" envDefault:"1024"`
	// AppendTimeout bounds one background write to the audit sinks.
	AppendTimeout time.Duration `env:"BADGEPASS_AUDIT_APPEND_TIMEOUT" envDefault:"5s"`
}

// FromEnv parses and validates configuration from the process environment.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Audit.KafkaBrokers = pkgstrings.DedupeAndTrim(cfg.Audit.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements env tags cannot express.
func (c Server) Validate() error {
	if c.AdminTokenHash == "" {
		return fmt.Errorf("BADGEPASS_ADMIN_TOKEN_HASH is required")
	}
	if !strings.HasPrefix(c.AdminTokenHash, "$2") {
		return fmt.Errorf("BADGEPASS_ADMIN_TOKEN_HASH must be a bcrypt hash")
	}
	if len(c.Scanner.JWTKey) < 16 {
		return fmt.Errorf("BADGEPASS_SCANNER_JWT_KEY must be at least 16 bytes")
	}
	if c.Scanner.RateLimit < 0 || (c.Scanner.RateLimit > 0 && c.Scanner.RateWindow <= 0) {
		return fmt.Errorf("BADGEPASS_SCAN_RATE_LIMIT and BADGEPASS_SCAN_RATE_WINDOW must be positive")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("BADGEPASS_STORE_TIMEOUT must be positive")
	}

	switch c.Store.Backend {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("BADGEPASS_DATABASE_URL is required for the postgres store")
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("BADGEPASS_REDIS_URL is required for the redis store")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("BADGEPASS_MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown BADGEPASS_STORE %q", c.Store.Backend)
	}

	switch c.Directory.Backend {
	case DirectoryMemory:
	case DirectoryHTTP:
		if c.Directory.URL == "" {
			return fmt.Errorf("BADGEPASS_DIRECTORY_URL is required for the http directory")
		}
	case DirectoryPostgres:
		if c.Directory.DatabaseURL == "" {
			return fmt.Errorf("BADGEPASS_DIRECTORY_DATABASE_URL is required for the postgres directory")
		}
	default:
		return fmt.Errorf("unknown BADGEPASS_DIRECTORY %q", c.Directory.Backend)
	}
	return nil
}
