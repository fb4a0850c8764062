package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

const lockPrefix = "kancha:lock"

// releaseScript deletes the lock key only when the caller still owns it, so
// a lock that expired and was re-acquired by another replica is never
// released by the first holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker implements distributed locking with SET NX plus a compare-and-delete
// release. Used to serialize thread creation for a session across replicas.
type Locker struct {
	client redis.Cmdable
}

func NewLocker(client redis.Cmdable) *Locker {
	return &Locker{client: client}
}

func lockKey(key string) string {
	return fmt.Sprintf("%s:%s", lockPrefix, key)
}

// AcquireLock is a conditional put-if-absent with expiry. It returns false
// without error when another owner holds the lock.
func (l *Locker) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(key), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock removes the lock only if owner still holds it.
func (l *Locker) ReleaseLock(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(key)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

var _ ports.Locker = (*Locker)(nil)
