package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix = "filter_configs:"
	redisNameIndex = "filter_configs"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string
	Password string
	DB       string
	PoolSize string
}

// RedisStorage persists configuration documents in Redis, one hash per
// named document plus a set indexing the known names.
type RedisStorage struct {
	rdb *redis.Client
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig) (*RedisStorage, error) {
	if cfg.Address == "" {
		cfg.Address = "localhost:6379"
	}
	db, _ := strconv.Atoi(cfg.DB)
	poolSize, _ := strconv.Atoi(cfg.PoolSize)
	if poolSize == 0 {
		poolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       db,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStorage{rdb: rdb}, nil
}

func (s *RedisStorage) LoadConfig(ctx context.Context, name string) (*ConfigRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, redisKeyPrefix+name).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", name, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	record := &ConfigRecord{
		Name:     name,
		Document: []byte(fields["data"]),
	}
	if t, err := time.Parse(time.RFC3339, fields["created_at"]); err == nil {
		record.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, fields["updated_at"]); err == nil {
		record.UpdatedAt = t
	}
	return record, nil
}

func (s *RedisStorage) SaveConfig(ctx context.Context, name string, document []byte) error {
	key := redisKeyPrefix + name
	now := time.Now().UTC().Format(time.RFC3339)

	pipe := s.rdb.TxPipeline()
	pipe.HSetNX(ctx, key, "created_at", now)
	pipe.HSet(ctx, key, "data", string(document), "updated_at", now)
	pipe.SAdd(ctx, redisNameIndex, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save config %q: %w", name, err)
	}
	return nil
}

func (s *RedisStorage) ListConfigs(ctx context.Context) (map[string][]byte, error) {
	names, err := s.rdb.SMembers(ctx, redisNameIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}

	configs := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := s.rdb.HGet(ctx, redisKeyPrefix+name, "data").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load config %q: %w", name, err)
		}
		configs[name] = []byte(data)
	}
	return configs, nil
}

func (s *RedisStorage) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStorage) Close() error {
	return s.rdb.Close()
}
