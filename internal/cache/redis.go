package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/config"
)

// BadgeTTL is how long cached badge counters live without being read.
const BadgeTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Badges are the counters shown on a user's navigation: unread messages
// over all conversations and pending inbound likes.
type Badges struct {
	Unread int64 `json:"unread"`
	Likes  int64 `json:"likes"`
}

// KeyForBadges generates Redis key for a user's badge counters
func (c *RedisCache) KeyForBadges(userID string) string {
	return fmt.Sprintf("badges:%s", userID)
}

// KeyForBadgesVersion generates the Redis key of the counter bumped on every
// invalidation of a user's badges.
func (c *RedisCache) KeyForBadgesVersion(userID string) string {
	return fmt.Sprintf("badges:%s:version", userID)
}

// SetBadges stores both counters and refreshes the TTL.
func (c *RedisCache) SetBadges(ctx context.Context, userID string, b Badges) error {
	key := c.KeyForBadges(userID)
	pipe := c.Client.TxPipeline()
	pipe.HSet(ctx, key, "unread", b.Unread, "likes", b.Likes)
	pipe.Expire(ctx, key, BadgeTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// BadgesVersion returns the invalidation counter of userID. Read it before
// computing the counters and pass it to SetBadgesIfVersion.
func (c *RedisCache) BadgesVersion(ctx context.Context, userID string) (int64, error) {
	v, err := c.Client.Get(ctx, c.KeyForBadgesVersion(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetBadgesIfVersion stores the counters only if no invalidation happened
// since version was read. stored is false when the write was skipped.
func (c *RedisCache) SetBadgesIfVersion(ctx context.Context, userID string, version int64, b Badges) (stored bool, err error) {
	verKey := c.KeyForBadgesVersion(userID)
	err = c.Client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, verKey).Int64()
		if errors.Is(err, redis.Nil) {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			key := c.KeyForBadges(userID)
			pipe.HSet(ctx, key, "unread", b.Unread, "likes", b.Likes)
			pipe.Expire(ctx, key, BadgeTTL)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, verKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil // invalidated concurrently
	}
	return stored, err
}

// GetBadges returns the cached counters. ok is false on a cache miss.
func (c *RedisCache) GetBadges(ctx context.Context, userID string) (b Badges, ok bool, err error) {
	key := c.KeyForBadges(userID)
	vals, err := c.Client.HGetAll(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return b, false, nil // cache miss
	} else if err != nil {
		return b, false, err
	}

	unread, hasUnread := vals["unread"]
	likes, hasLikes := vals["likes"]
	if !hasUnread || !hasLikes {
		return b, false, nil
	}
	if b.Unread, err = strconv.ParseInt(unread, 10, 64); err != nil {
		return Badges{}, false, err
	}
	if b.Likes, err = strconv.ParseInt(likes, 10, 64); err != nil {
		return Badges{}, false, err
	}

	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, BadgeTTL).Err()
	return b, true, nil
}

// InvalidateBadges drops the cached counters of every given user and bumps
// their version so fills computed before the call are discarded.
func (c *RedisCache) InvalidateBadges(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	pipe := c.Client.TxPipeline()
	for _, id := range userIDs {
		verKey := c.KeyForBadgesVersion(id)
		pipe.Incr(ctx, verKey)
		pipe.Expire(ctx, verKey, BadgeTTL)
		pipe.Del(ctx, c.KeyForBadges(id))
	}
	_, err := pipe.Exec(ctx)
	return err
}
