package health

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
	infraDB "github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/db"
)

// dbHealthChecker wraps the usage-log database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the session-store redis client.
type redisHealthChecker struct{ client *redis.Client }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// poolHealthChecker reports unhealthy when the speech pool has no usable
// connection at all (every open has failed and nothing is issued).
type poolHealthChecker struct{ pool ports.ConnectionPool }

func (p *poolHealthChecker) Name() string { return "speech_pool" }
func (p *poolHealthChecker) Check(ctx context.Context) error {
	st := p.pool.Stats()
	if st.Available == 0 && st.InUse == 0 {
		return fmt.Errorf("no usable speech connections (size %d)", st.Size)
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client *redis.Client) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewPoolHealthChecker creates a health checker for the speech pool.
func NewPoolHealthChecker(pool ports.ConnectionPool) ports.HealthChecker {
	return &poolHealthChecker{pool: pool}
}
