// Package config loads process configuration from environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

const minSecretLength = 32

var (
	// ErrMissingSecret is returned when JWT_SECRET is unset outside development.
	ErrMissingSecret = errors.New("JWT_SECRET must be set")
	// ErrWeakSecret is returned when JWT_SECRET is too short outside development.
	ErrWeakSecret = fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
)

// Config holds runtime settings for the service.
type Config struct {
	Env             string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	JWT     JWTConfig
	Storage StorageConfig
	Cache   CacheConfig

	BcryptCost int
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	// Ephemeral is set when the secret was generated at startup.
	Ephemeral bool
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	Driver   string
	URL      string
	Database string
	Debug    bool
}

// CacheConfig configures the optional Redis stats cache.
type CacheConfig struct {
	RedisAddr string
	TTL       time.Duration
	Prefix    string
}

// Enabled reports whether a Redis address was configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// Development reports whether the service runs in development mode.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Env:             strings.ToLower(getEnv("APP_ENV", "production")),
		Port:            getEnvInt("PORT", 3000),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getEnv("JWT_ISSUER", "task-tracker-api"),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(getEnv("STORAGE_DRIVER", DriverSQLite)),
			URL:      getEnv("DATABASE_URL", "task_tracker.db"),
			Database: getEnv("MONGO_DATABASE", "task_management"),
			Debug:    getEnvBool("DB_DEBUG", false),
		},
		Cache: CacheConfig{
			RedisAddr: os.Getenv("REDIS_ADDR"),
			TTL:       getEnvDuration("CACHE_TTL", 5*time.Minute),
			Prefix:    getEnv("CACHE_PREFIX", "stats:"),
		},
		BcryptCost: getEnvInt("BCRYPT_COST", 12),
	}

	if err := cfg.resolveSecret(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveSecret enforces the signing secret policy. Only development mode may
// run without one, and then a random secret is generated for this process.
func (c *Config) resolveSecret() error {
	if c.JWT.Secret == "" {
		if !c.Development() {
			return ErrMissingSecret
		}
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("failed to generate development secret: %w", err)
		}
		c.JWT.Secret = secret
		c.JWT.Ephemeral = true
		return nil
	}
	if len(c.JWT.Secret) < minSecretLength && !c.Development() {
		return ErrWeakSecret
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWT.TTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverMongo, DriverPostgres:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Storage.URL == "" {
		return errors.New("DATABASE_URL must not be empty")
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, minSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// getEnv returns environment variable or default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool returns environment variable as bool or default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}
