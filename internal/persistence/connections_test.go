package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hoyn-app/profile-qr/internal/config"
)

func TestNewPostgresRequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrNotConfigured)

	var pg *Postgres
	assert.Error(t, pg.Ping(context.Background()))
	assert.Nil(t, pg.PoolHandle())
	pg.Close()
}

func TestRedisDisabledWithoutAddr(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zaptest.NewLogger(t))
	assert.Nil(t, r.Handle())
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}

func TestRedisPing(t *testing.T) {
	srv := miniredis.RunT(t)

	r := NewRedis(config.RedisConfig{Addr: srv.Addr()}, zaptest.NewLogger(t))
	defer r.Close()
	require.NotNil(t, r.Handle())
	assert.NoError(t, r.Ping(context.Background()))
}
