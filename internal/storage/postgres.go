package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	SSLMode  string
}

func (c PostgresConfig) connectionString() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
}

// PostgresStorage persists configuration documents in PostgreSQL via the
// pgx stdlib driver.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgres connects to PostgreSQL and runs migrations.
func NewPostgres(cfg PostgresConfig) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", cfg.connectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *PostgresStorage) migrate() error {
	// TEXT, not JSONB: JSONB reorders object keys, and mapping-form
	// documents rely on key order for rule precedence.
	query := `CREATE TABLE IF NOT EXISTS filter_configs (
		id SERIAL PRIMARY KEY,
		config_name VARCHAR(255) UNIQUE NOT NULL,
		config_data TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}
	return nil
}

func (s *PostgresStorage) LoadConfig(ctx context.Context, name string) (*ConfigRecord, error) {
	query := `SELECT config_name, config_data, created_at, updated_at
			  FROM filter_configs WHERE config_name = $1`

	record := &ConfigRecord{}
	var data []byte
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&record.Name, &data, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", name, err)
	}

	record.Document = data
	return record, nil
}

func (s *PostgresStorage) SaveConfig(ctx context.Context, name string, document []byte) error {
	query := `INSERT INTO filter_configs (config_name, config_data)
			  VALUES ($1, $2)
			  ON CONFLICT (config_name)
			  DO UPDATE SET config_data = $2, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, name, document); err != nil {
		return fmt.Errorf("failed to save config %q: %w", name, err)
	}
	return nil
}

func (s *PostgresStorage) ListConfigs(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT config_name, config_data FROM filter_configs`)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[string][]byte)
	for rows.Next() {
		var name string
		var data []byte
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		configs[name] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate config rows: %w", err)
	}

	return configs, nil
}

func (s *PostgresStorage) Health() error {
	return s.db.Ping()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
