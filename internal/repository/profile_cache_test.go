package repository_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hoyn-app/profile-qr/internal/domain"
	"github.com/hoyn-app/profile-qr/internal/repository"
)

type countingReader struct {
	repository.ProfileReader
	gets atomic.Int32
}

func (c *countingReader) Get(ctx context.Context, id string) (*domain.Profile, error) {
	c.gets.Add(1)
	return c.ProfileReader.Get(ctx, id)
}

func newCache(t *testing.T, ttl time.Duration) (*repository.CachedProfiles, *countingReader, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &countingReader{ProfileReader: repository.NewMemoryProfiles(
		domain.Profile{ID: "p-1", OwnerID: "owner-1", DisplayName: "Cumhur", Active: true},
		domain.Profile{ID: "p-off", OwnerID: "owner-1", DisplayName: "Off", Active: false},
	)}
	return repository.NewCachedProfiles(backing, client, ttl, zaptest.NewLogger(t)), backing, mr
}

func TestCachedProfiles_ReadThrough(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache, backing, mr := newCache(t, time.Minute)

	first, err := cache.Get(ctx, "p-1")
	require.NoError(t, err)
	second, err := cache.Get(ctx, "p-1")
	require.NoError(t, err)

	assert.Equal(t, first.DisplayName, second.DisplayName)
	assert.Equal(t, int32(1), backing.gets.Load())
	assert.True(t, mr.Exists("profile:p-1"))

	exists, err := cache.Exists(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.FastForward(2 * time.Minute)
	_, err = cache.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), backing.gets.Load())
}

func TestCachedProfiles_NotFoundIsNotCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache, backing, mr := newCache(t, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cache.Get(ctx, "p-off")
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	}
	assert.Equal(t, int32(2), backing.gets.Load())
	assert.False(t, mr.Exists("profile:p-off"))

	exists, err := cache.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCachedProfiles_RedisDownFallsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache, backing, mr := newCache(t, time.Minute)
	mr.Close()

	profile, err := cache.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", profile.ID)
	assert.Equal(t, int32(1), backing.gets.Load())
}

func TestCachedProfiles_Invalidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cache, backing, mr := newCache(t, time.Minute)

	_, err := cache.Get(ctx, "p-1")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "p-1"))
	assert.False(t, mr.Exists("profile:p-1"))

	_, err = cache.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), backing.gets.Load())
}

func TestCachedProfiles_Disabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backing := &countingReader{ProfileReader: repository.NewMemoryProfiles(domain.Profile{ID: "p-1", Active: true})}
	cache := repository.NewCachedProfiles(backing, nil, time.Minute, nil)

	for i := 0; i < 2; i++ {
		_, err := cache.Get(ctx, "p-1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), backing.gets.Load())
	require.NoError(t, cache.Invalidate(ctx, "p-1"))
}

func TestCachedProfiles_DeactivatedProfileStopsResolving(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewMemoryProfiles(domain.Profile{ID: "p-1", OwnerID: "owner-1", DisplayName: "Cumhur", Active: true})
	cache := repository.NewCachedProfiles(store, client, time.Minute, zaptest.NewLogger(t))

	_, err := cache.Get(ctx, "p-1")
	require.NoError(t, err)
	require.True(t, mr.Exists("profile:p-1"))

	require.NoError(t, store.Create(ctx, &domain.Profile{ID: "p-1", OwnerID: "owner-1", DisplayName: "Cumhur", Active: false}))

	_, err = cache.Get(ctx, "p-1")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.False(t, mr.Exists("profile:p-1"), "stale entry must be evicted")

	exists, err := cache.Exists(ctx, "p-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCachedProfiles_DeletedProfileStopsResolving(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &swappableReader{ProfileReader: repository.NewMemoryProfiles(domain.Profile{ID: "p-1", Active: true})}
	cache := repository.NewCachedProfiles(backing, client, time.Minute, zaptest.NewLogger(t))

	_, err := cache.Get(ctx, "p-1")
	require.NoError(t, err)

	backing.ProfileReader = repository.NewMemoryProfiles()

	profile, err := cache.Get(ctx, "p-1")
	assert.Nil(t, profile)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.False(t, mr.Exists("profile:p-1"))
}

func TestCachedProfiles_StoreErrorOnCacheHitIsReturned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &swappableReader{ProfileReader: repository.NewMemoryProfiles(domain.Profile{ID: "p-1", Active: true})}
	cache := repository.NewCachedProfiles(backing, client, time.Minute, zaptest.NewLogger(t))

	_, err := cache.Get(ctx, "p-1")
	require.NoError(t, err)

	backing.existsErr = errStoreDown
	_, err = cache.Get(ctx, "p-1")
	assert.ErrorIs(t, err, errStoreDown)
	assert.True(t, mr.Exists("profile:p-1"), "a store outage must not evict")
}

var errStoreDown = errors.New("store down")

type swappableReader struct {
	repository.ProfileReader
	existsErr error
}

func (s *swappableReader) Exists(ctx context.Context, id string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.ProfileReader.Exists(ctx, id)
}
