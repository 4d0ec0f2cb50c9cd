package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	redisadapter "migitrader/internal/adapters/redis"
	"migitrader/internal/domain/insights"
	"migitrader/internal/marketclock"
	"migitrader/pkg/errors"
	"migitrader/pkg/logger"
)

// InsightsRepository stores the daily insights cache entry in Redis.
// One entry per trading date, keyed "<namespace>:daily:<YYYY-MM-DD>".
type InsightsRepository struct {
	client    *redisadapter.Client
	clock     *marketclock.Clock
	namespace string
	log       *logger.Logger
}

// NewInsightsRepository creates a new insights cache repository
func NewInsightsRepository(client *redisadapter.Client, clock *marketclock.Clock, namespace string) *InsightsRepository {
	return &InsightsRepository{
		client:    client,
		clock:     clock,
		namespace: namespace,
		log:       logger.Get().With("component", "insights_cache"),
	}
}

// Get retrieves the cached insights for a trading date.
// An absent key is a miss (nil, nil). A payload that no longer
// deserializes is deleted and also reported as a miss, never as an error.
func (r *InsightsRepository) Get(ctx context.Context, date string) (*insights.DailyInsights, error) {
	key := r.key(date)

	data, err := r.client.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get insights from cache: date=%s", date)
	}

	var daily insights.DailyInsights
	if err := json.Unmarshal(data, &daily); err != nil {
		r.log.Warnw("Discarding corrupt cache entry", "key", key, "error", err)
		_ = r.client.Delete(ctx, key)
		return nil, nil
	}

	return &daily, nil
}

// Save stores insights under the date key. A non-positive ttl selects
// the dynamic market-hours policy.
func (r *InsightsRepository) Save(ctx context.Context, daily *insights.DailyInsights, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.clock.DynamicTTL()
	}

	if err := r.client.Set(ctx, r.key(daily.Date), daily, ttl); err != nil {
		return errors.Wrapf(errors.ErrCacheNotPersisted, "date=%s: %v", daily.Date, err)
	}

	r.log.Debugw("Insights cached", "date", daily.Date, "ttl", ttl)
	return nil
}

// Exists checks whether an entry exists for a trading date
func (r *InsightsRepository) Exists(ctx context.Context, date string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.key(date))
	if err != nil {
		return false, errors.Wrapf(err, "failed to check insights cache: date=%s", date)
	}
	return exists, nil
}

// Delete removes the entry for a trading date
func (r *InsightsRepository) Delete(ctx context.Context, date string) error {
	if err := r.client.Delete(ctx, r.key(date)); err != nil {
		return errors.Wrapf(err, "failed to delete insights from cache: date=%s", date)
	}
	return nil
}

func (r *InsightsRepository) key(date string) string {
	return fmt.Sprintf("%s:daily:%s", r.namespace, date)
}
