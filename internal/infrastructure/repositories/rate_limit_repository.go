package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// RateLimitRedisRepository implements fixed-window rate-limit counters in
// Redis, shared across replicas.
type RateLimitRedisRepository struct {
	r      redis.Cmdable
	prefix string
}

func NewRateLimitRedisRepository(r redis.Cmdable, prefix string) *RateLimitRedisRepository {
	return &RateLimitRedisRepository{r: r, prefix: prefix}
}

// IncrementWindow increments the caller's counter for the current window.
func (repo *RateLimitRedisRepository) IncrementWindow(ctx context.Context, key string, window, ttl time.Duration) (int, time.Time, error) {
	now := time.Now()
	windowStart := now.Truncate(window)
	rkey := fmt.Sprintf("%s:%s:%d", repo.prefix, key, windowStart.Unix())
	pipe := repo.r.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	pipe.Expire(ctx, rkey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, windowStart, err
	}
	return int(incr.Val()), windowStart, nil
}

var _ ports.RateLimitRepository = (*RateLimitRedisRepository)(nil)
