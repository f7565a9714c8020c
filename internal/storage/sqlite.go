package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage persists configuration documents in a local SQLite file.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and runs migrations.
func NewSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS filter_configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			config_name TEXT UNIQUE NOT NULL,
			config_data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_filter_configs_name ON filter_configs(config_name)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStorage) LoadConfig(ctx context.Context, name string) (*ConfigRecord, error) {
	query := `SELECT config_name, config_data, created_at, updated_at
			  FROM filter_configs WHERE config_name = ?`

	record := &ConfigRecord{}
	var data string
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&record.Name, &data, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", name, err)
	}

	record.Document = []byte(data)
	return record, nil
}

func (s *SQLiteStorage) SaveConfig(ctx context.Context, name string, document []byte) error {
	query := `INSERT INTO filter_configs (config_name, config_data)
			  VALUES (?, ?)
			  ON CONFLICT(config_name) DO UPDATE SET config_data = ?, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, name, string(document), string(document)); err != nil {
		return fmt.Errorf("failed to save config %q: %w", name, err)
	}
	return nil
}

func (s *SQLiteStorage) ListConfigs(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT config_name, config_data FROM filter_configs`)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[string][]byte)
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		configs[name] = []byte(data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate config rows: %w", err)
	}

	return configs, nil
}

func (s *SQLiteStorage) Health() error {
	return s.db.Ping()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
