// Package storage provides the durable config store: named configuration
// documents persisted as opaque serialized JSON blobs, with last-write-wins
// semantics per name. Adapters exist for SQLite, PostgreSQL and Redis; the
// factory selects one from process configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "api-router/internal/common/errors"
	"api-router/internal/config"
)

// ErrNotFound is returned by LoadConfig when no document exists under the
// requested name.
var ErrNotFound = errors.New("configuration not found")

// ConfigRecord is one named configuration entry. The timestamps are
// informational; ordering inside a document is carried by the document
// itself.
type ConfigRecord struct {
	Name      string    `json:"name"`
	Document  []byte    `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage is the config store interface the router core collaborates with.
type Storage interface {
	// LoadConfig returns the document stored under name, or ErrNotFound.
	LoadConfig(ctx context.Context, name string) (*ConfigRecord, error)

	// SaveConfig upserts the document under name, maintaining updated_at.
	SaveConfig(ctx context.Context, name string, document []byte) error

	// ListConfigs returns every named document.
	ListConfigs(ctx context.Context) (map[string][]byte, error)

	// Health reports whether the backing store is reachable.
	Health() error

	// Close releases the underlying connections.
	Close() error
}

// New creates a storage adapter based on process configuration.
func New(cfg *config.Config) (Storage, error) {
	switch cfg.DatabaseType {
	case "sqlite":
		return NewSQLite(cfg.DatabasePath)
	case "postgres", "postgresql":
		return NewPostgres(PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			Database: cfg.PostgresDB,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			SSLMode:  cfg.PostgresSSLMode,
		})
	case "redis":
		return NewRedis(RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
	default:
		return nil, apperrors.ConfigError(fmt.Sprintf("unsupported database type: %s", cfg.DatabaseType))
	}
}
