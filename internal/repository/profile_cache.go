package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

const profileCachePrefix = "profile:"

// ProfileReader is the lookup side of a profile store.
type ProfileReader interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*domain.Profile, error)
}

// CachedProfiles is a read-through Redis cache in front of a ProfileReader.
// Only the profile record is cached: whether the profile is still active is
// always answered by the underlying store, and a cached entry whose profile
// is gone is invalidated. Cache failures degrade to the underlying store.
type CachedProfiles struct {
	next   ProfileReader
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProfiles wraps next. A nil client or non-positive ttl disables caching.
func NewCachedProfiles(next ProfileReader, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProfiles {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProfiles{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedProfiles) enabled() bool {
	return c.client != nil && c.ttl > 0
}

// Exists reports whether an active profile exists. It always asks the
// underlying store and drops any cached record of a missing profile.
func (c *CachedProfiles) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := c.next.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		c.evict(ctx, id)
	}
	return ok, nil
}

// Get returns the profile, consulting the cache first.
func (c *CachedProfiles) Get(ctx context.Context, id string) (*domain.Profile, error) {
	if !c.enabled() {
		return c.next.Get(ctx, id)
	}

	key := profileCachePrefix + id
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var profile domain.Profile
		if jsonErr := json.Unmarshal(raw, &profile); jsonErr == nil {
			active, err := c.Exists(ctx, id)
			if err != nil {
				return nil, err
			}
			if !active {
				return nil, domain.ErrProfileNotFound
			}
			return &profile, nil
		}
		c.logger.Warn("dropping undecodable cached profile", zap.String("profile_id", id))
		_ = c.client.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("profile cache get failed", zap.String("profile_id", id), zap.Error(err))
	}

	profile, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(profile); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("profile cache set failed", zap.String("profile_id", id), zap.Error(err))
		}
	}
	return profile, nil
}

func (c *CachedProfiles) evict(ctx context.Context, id string) {
	if err := c.Invalidate(ctx, id); err != nil {
		c.logger.Warn("profile cache invalidate failed", zap.String("profile_id", id), zap.Error(err))
	}
}

// Invalidate drops a cached profile.
func (c *CachedProfiles) Invalidate(ctx context.Context, id string) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, profileCachePrefix+id).Err()
}
