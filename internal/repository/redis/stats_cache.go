package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shelfScout/domain"
)

const statsKey = "recommend:arm_stats"

// StatsCache keeps the arm statistics view in Redis for a short TTL so the
// stats endpoint does not hit every arm mutex on every scrape.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsCache{client: client, ttl: ttl}
}

// GetArmStatistics returns the cached view, or (nil, nil) on a miss.
func (c *StatsCache) GetArmStatistics(ctx context.Context) (*domain.ArmStatistics, error) {
	val, err := c.client.Get(ctx, statsKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get arm stats from Redis: %w", err)
	}

	var stats domain.ArmStatistics
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arm stats: %w", err)
	}
	return &stats, nil
}

func (c *StatsCache) SetArmStatistics(ctx context.Context, stats domain.ArmStatistics) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal arm stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store arm stats in Redis: %w", err)
	}
	return nil
}

// Invalidate drops the cached view, used after admin resets.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate arm stats: %w", err)
	}
	return nil
}
