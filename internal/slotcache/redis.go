package slotcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"restoboost/internal/model"
)

const keyPrefix = "slots"

// Redis shares cached slot lists between instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "slotcache").Logger(),
	}
}

func redisKey(key Key) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, key.RestaurantID, key.Date)
}

func (c *Redis) Get(ctx context.Context, key Key) ([]model.Slot, bool) {
	val, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", redisKey(key)).Msg("slot cache read failed")
		}
		return nil, false
	}
	var slots []model.Slot
	if err := json.Unmarshal(val, &slots); err != nil {
		c.logger.Warn().Err(err).Str("key", redisKey(key)).Msg("slot cache entry is corrupt")
		return nil, false
	}
	return cloneSlots(slots), true
}

func (c *Redis) Put(ctx context.Context, key Key, slots []model.Slot) {
	if c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(cloneSlots(slots))
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKey(key), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", redisKey(key)).Msg("slot cache write failed")
	}
}

func (c *Redis) Invalidate(ctx context.Context, restaurantID *int64) {
	pattern := keyPrefix + ":*"
	if restaurantID != nil {
		pattern = fmt.Sprintf("%s:%d:*", keyPrefix, *restaurantID)
	}

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Str("pattern", pattern).Msg("slot cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Int("keys", len(keys)).Msg("slot cache invalidation failed")
	}
}
