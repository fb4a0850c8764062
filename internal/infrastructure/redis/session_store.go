package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

const sessionPrefix = "kancha:session"

// SessionStore keeps the session→thread mapping in Redis so every replica
// behind the load balancer resolves the same conversation thread.
type SessionStore struct {
	client redis.Cmdable
	logger *logrus.Logger
}

func NewSessionStore(client redis.Cmdable, logger *logrus.Logger) *SessionStore {
	return &SessionStore{client: client, logger: logger}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:thread:%s", sessionPrefix, sessionID)
}

func (s *SessionStore) GetThread(ctx context.Context, sessionID string) (string, error) {
	threadID, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return "", ports.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session thread: %w", err)
	}
	return threadID, nil
}

func (s *SessionStore) SetThread(ctx context.Context, sessionID, threadID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(sessionID), threadID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session thread: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"session_id": sessionID, "thread_id": threadID}).Debug("session thread stored")
	}
	return nil
}

// Touch extends the session TTL on activity. A missing session is reported
// so the caller can recreate the thread.
func (s *SessionStore) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, sessionKey(sessionID), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if !ok {
		return ports.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ ports.SessionStore = (*SessionStore)(nil)
