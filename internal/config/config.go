package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds configuration for the settings service.
type Config struct {
	HTTPPort  string
	JWTSecret []byte
	JWTTTL    time.Duration
	Database  DatabaseConfig
	Redis     RedisConfig
	KeyVault  KeyVaultConfig
	Discovery DiscoveryConfig
	Sessions  SessionConfig
	Logging   LoggingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings for the refresh bus.
// When Address is empty the in-process bus is used instead.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	Channel      string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KeyVaultConfig controls how provider secrets are sealed at rest.
type KeyVaultConfig struct {
	Secret string
	// Insecure stores key vaults as plain JSON. Only meant for local development.
	Insecure bool
}

// DiscoveryConfig holds settings for remote model list discovery
type DiscoveryConfig struct {
	RequestTimeout time.Duration
	CacheSize      int
	// CacheTTL of zero disables the cache so every explicit fetch reaches the provider.
	CacheTTL time.Duration
}

// SessionConfig bounds the per-user session caches kept by the server.
type SessionConfig struct {
	CacheSize int
	TTL       time.Duration
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string
	Format string
	// AuditFile is the audit log path. Auditing is off when empty.
	AuditFile       string
	AuditMaxSizeMB  int
	AuditMaxBackups int
	AuditMaxAgeDays int
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment variables
// take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	driver := getEnvString("DATABASE_DRIVER", DriverPostgres)
	dbURL := os.Getenv("DATABASE_URL")
	switch driver {
	case DriverPostgres:
		if dbURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case DriverSQLite:
		if dbURL == "" {
			dbURL = "file:aiinfra.db?_foreign_keys=on"
		}
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", driver)
	}

	keyVault := KeyVaultConfig{
		Secret:   os.Getenv("KEY_VAULTS_SECRET"),
		Insecure: getEnvBool("KEY_VAULTS_INSECURE", false),
	}
	if keyVault.Secret == "" && !keyVault.Insecure {
		return nil, fmt.Errorf("KEY_VAULTS_SECRET is required (set KEY_VAULTS_INSECURE=true for local development)")
	}

	cfg := &Config{
		HTTPPort:  getEnvString("HTTP_PORT", "8080"),
		JWTSecret: []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		Database: DatabaseConfig{
			Driver:          driver,
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Address:      os.Getenv("REDIS_ADDRESS"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			Channel:      getEnvString("REDIS_REFRESH_CHANNEL", "aiinfra:refresh"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KeyVault: keyVault,
		Discovery: DiscoveryConfig{
			RequestTimeout: getEnvDuration("DISCOVERY_REQUEST_TIMEOUT", 30*time.Second),
			CacheSize:      getEnvInt("DISCOVERY_CACHE_SIZE", 256),
			CacheTTL:       getEnvDuration("DISCOVERY_CACHE_TTL", 0),
		},
		Sessions: SessionConfig{
			CacheSize: getEnvInt("SESSION_CACHE_SIZE", 1024),
			TTL:       getEnvDuration("SESSION_TTL", 30*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),

			AuditFile:       os.Getenv("AUDIT_LOG_FILE"),
			AuditMaxSizeMB:  getEnvInt("AUDIT_LOG_MAX_SIZE_MB", 10),
			AuditMaxBackups: getEnvInt("AUDIT_LOG_MAX_BACKUPS", 10),
			AuditMaxAgeDays: getEnvInt("AUDIT_LOG_MAX_AGE_DAYS", 90),
		},
	}

	return cfg, nil
}
