package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// MemoryStore is the single-process fallback for ports.SessionStore, used in
// development and tests when Redis is not configured. Expiry is lazy.
type MemoryStore struct {
	mu      sync.Mutex
	threads map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	threadID  string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) GetThread(_ context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.threads[sessionID]
	if !ok || m.now().After(e.expiresAt) {
		delete(m.threads, sessionID)
		return "", ports.ErrSessionNotFound
	}
	return e.threadID, nil
}

func (m *MemoryStore) SetThread(_ context.Context, sessionID, threadID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[sessionID] = memoryEntry{threadID: threadID, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.threads[sessionID]
	if !ok || m.now().After(e.expiresAt) {
		delete(m.threads, sessionID)
		return ports.ErrSessionNotFound
	}
	e.expiresAt = m.now().Add(ttl)
	m.threads[sessionID] = e
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, sessionID)
	return nil
}

// MemoryLocker implements ports.Locker for a single process with the same
// owner/expiry semantics as the Redis locker.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time
}

type memoryLock struct {
	owner     string
	expiresAt time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryLock), now: time.Now}
}

func (l *MemoryLocker) AcquireLock(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.locks[key]; ok && l.now().Before(cur.expiresAt) {
		return false, nil
	}
	l.locks[key] = memoryLock{owner: owner, expiresAt: l.now().Add(ttl)}
	return true, nil
}

func (l *MemoryLocker) ReleaseLock(_ context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.locks[key]; ok && cur.owner == owner {
		delete(l.locks, key)
	}
	return nil
}

var (
	_ ports.SessionStore = (*MemoryStore)(nil)
	_ ports.Locker       = (*MemoryLocker)(nil)
)
