package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// SessionService resolves the agent thread behind a caller session id,
// creating it on first use. Creation is serialized across replicas with a
// distributed lock so two instances never open two threads for one session.
type SessionService struct {
	store   ports.SessionStore
	locker  ports.Locker
	agent   ports.ConversationAgent
	ttl     time.Duration
	lockTTL time.Duration
	logger  *logrus.Logger
}

func NewSessionService(store ports.SessionStore, locker ports.Locker, agent ports.ConversationAgent, ttl, lockTTL time.Duration, logger *logrus.Logger) *SessionService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &SessionService{store: store, locker: locker, agent: agent, ttl: ttl, lockTTL: lockTTL, logger: logger}
}

// EnsureThread returns the thread id for the session, creating the thread if
// none exists yet. Existing sessions get their TTL extended.
func (s *SessionService) EnsureThread(ctx context.Context, sessionID string) (string, error) {
	threadID, err := s.store.GetThread(ctx, sessionID)
	if err == nil {
		_ = s.store.Touch(ctx, sessionID, s.ttl)
		return threadID, nil
	}
	if err != ports.ErrSessionNotFound {
		return "", fmt.Errorf("session lookup failed: %w", err)
	}
	return s.createThread(ctx, sessionID)
}

func (s *SessionService) createThread(ctx context.Context, sessionID string) (string, error) {
	owner := uuid.NewString()
	lockKey := "session:" + sessionID

	acquired, err := s.locker.AcquireLock(ctx, lockKey, owner, s.lockTTL)
	if err != nil {
		return "", fmt.Errorf("session lock failed: %w", err)
	}
	if !acquired {
		// Another replica is creating the thread. Poll the store until it
		// lands or the lock window passes.
		deadline := time.Now().Add(s.lockTTL)
		for time.Now().Before(deadline) {
			if threadID, err := s.store.GetThread(ctx, sessionID); err == nil {
				return threadID, nil
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
		return "", fmt.Errorf("timed out waiting for session %s to be created", sessionID)
	}
	defer func() {
		if err := s.locker.ReleaseLock(ctx, lockKey, owner); err != nil && s.logger != nil {
			s.logger.WithError(err).WithField("session_id", sessionID).Warn("session lock release failed")
		}
	}()

	// Double-check after winning the lock: another replica may have created
	// the thread before we locked.
	if threadID, err := s.store.GetThread(ctx, sessionID); err == nil {
		return threadID, nil
	}

	threadID, err := s.agent.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("thread creation failed: %w", err)
	}
	if err := s.store.SetThread(ctx, sessionID, threadID, s.ttl); err != nil {
		return "", fmt.Errorf("storing session thread failed: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"session_id": sessionID, "thread_id": threadID}).Info("session thread created")
	}
	return threadID, nil
}

// EndSession drops the session→thread mapping. The provider expires the
// thread on its own schedule.
func (s *SessionService) EndSession(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

var _ ports.SessionService = (*SessionService)(nil)
