package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *RedisStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedis(RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStorage_SaveAndLoad(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	doc := []byte(`{"user_type": {"premium": "http://a"}}`)
	require.NoError(t, s.SaveConfig(ctx, "default", doc))

	record, err := s.LoadConfig(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "default", record.Name)
	assert.JSONEq(t, string(doc), string(record.Document))
}

func TestRedisStorage_LoadMissing(t *testing.T) {
	s := newTestRedis(t)

	_, err := s.LoadConfig(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorage_UpsertLastWriteWins(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.SaveConfig(ctx, "default", []byte(`[1]`)))
	require.NoError(t, s.SaveConfig(ctx, "default", []byte(`[2]`)))

	record, err := s.LoadConfig(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, `[2]`, string(record.Document))
}

func TestRedisStorage_ListConfigs(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.SaveConfig(ctx, "default", []byte(`[]`)))
	require.NoError(t, s.SaveConfig(ctx, "canary", []byte(`{}`)))

	configs, err := s.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, configs, 2)
	assert.Equal(t, `[]`, string(configs["default"]))
	assert.Equal(t, `{}`, string(configs["canary"]))
}

func TestRedisStorage_Health(t *testing.T) {
	s := newTestRedis(t)
	assert.NoError(t, s.Health())
}
