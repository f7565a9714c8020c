// Package config provides configuration for the router process, loaded from
// environment variables with sensible defaults.
//
// Environment Variables:
//
// Application settings:
//   - PORT: server port (default: 8080)
//   - LOG_LEVEL: logging level (default: info)
//   - DEFAULT_CONFIG_NAME: name of the live routing configuration
//     (default: default)
//
// Config store:
//   - DATABASE_TYPE: "sqlite", "postgres" or "redis" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./filter_configs.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER,
//     POSTGRES_PASSWORD, POSTGRES_SSL_MODE: PostgreSQL connection settings
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD, REDIS_DB, REDIS_POOL_SIZE: Redis connection settings
//
// Forwarding:
//   - FORWARD_TIMEOUT: outbound call budget (default: 30s)
//   - CIRCUIT_BREAKER_ENABLED: wrap outbound calls in a circuit breaker
//     (default: false)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the router process. Load it
// with Load() and check it with Validate() before use.
type Config struct {
	// Application settings
	Port              string
	LogLevel          string
	DefaultConfigName string

	// Config store
	DatabaseType string
	DatabasePath string

	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	RedisAddress  string
	RedisPassword string
	RedisDB       string
	RedisPoolSize string

	// Forwarding
	ForwardTimeout        string
	CircuitBreakerEnabled bool
}

// Load creates a Config from environment variables. It does not validate;
// call Validate() on the result before starting the process.
func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DefaultConfigName: getEnv("DEFAULT_CONFIG_NAME", "default"),

		DatabaseType: getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath: getEnv("DATABASE_PATH", "./filter_configs.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "api_router"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		ForwardTimeout:        getEnv("FORWARD_TIMEOUT", "30s"),
		CircuitBreakerEnabled: getBoolEnv("CIRCUIT_BREAKER_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ForwardTimeoutDuration returns the parsed outbound call budget. Validate
// guarantees it parses; a zero Config falls back to 30s.
func (c *Config) ForwardTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ForwardTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Validate checks required fields, value formats, and cross-field
// dependencies. Call it after Load and before starting the process.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.DefaultConfigName == "" {
		return fmt.Errorf("DEFAULT_CONFIG_NAME must not be empty")
	}

	switch c.DatabaseType {
	case "sqlite", "postgres", "postgresql", "redis":
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite', 'postgres' or 'redis'")
	}

	if c.DatabaseType == "postgres" || c.DatabaseType == "postgresql" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.DatabaseType == "redis" {
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when using Redis")
		}
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if d, err := time.ParseDuration(c.ForwardTimeout); err != nil || d <= 0 {
		return fmt.Errorf("FORWARD_TIMEOUT must be a positive duration (e.g., '30s')")
	}

	return nil
}
