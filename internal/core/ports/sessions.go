package ports

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned by SessionStore lookups when no thread
// mapping exists (or it has expired).
var ErrSessionNotFound = errors.New("session not found")

// SessionStore maps a caller session id to the provider-side conversation
// thread id. Entries expire after the session TTL; Touch extends it.
type SessionStore interface {
	GetThread(ctx context.Context, sessionID string) (string, error)
	SetThread(ctx context.Context, sessionID, threadID string, ttl time.Duration) error
	Touch(ctx context.Context, sessionID string, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// Locker is a distributed mutual-exclusion primitive used to serialize
// session/thread creation across horizontally scaled replicas. AcquireLock
// is a conditional put-if-absent with expiry; ReleaseLock deletes only when
// the caller still owns the lock.
type Locker interface {
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) error
}
