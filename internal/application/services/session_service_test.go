package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/application/services"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/infrastructure/sessions"
)

func TestEnsureThreadCreatesOnce(t *testing.T) {
	agent := &agentMock{createThreadFn: func(ctx context.Context) (string, error) {
		return "thread-abc", nil
	}}
	svc := services.NewSessionService(sessions.NewMemoryStore(), sessions.NewMemoryLocker(), agent, time.Minute, time.Second, nil)

	first, err := svc.EnsureThread(context.Background(), "sess1")
	require.NoError(t, err)
	require.Equal(t, "thread-abc", first)

	second, err := svc.EnsureThread(context.Background(), "sess1")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureThreadConcurrentCreatesSingleThread(t *testing.T) {
	var created int64
	agent := &agentMock{createThreadFn: func(ctx context.Context) (string, error) {
		n := atomic.AddInt64(&created, 1)
		time.Sleep(30 * time.Millisecond)
		return "thread-" + string(rune('a'+n-1)), nil
	}}
	svc := services.NewSessionService(sessions.NewMemoryStore(), sessions.NewMemoryLocker(), agent, time.Minute, 2*time.Second, nil)

	var wg sync.WaitGroup
	results := make([]string, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			threadID, err := svc.EnsureThread(context.Background(), "shared")
			require.NoError(t, err)
			results[i] = threadID
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(1), atomic.LoadInt64(&created))
	for _, r := range results {
		require.Equal(t, results[0], r)
	}
}

func TestEnsureThreadAgentFailure(t *testing.T) {
	boom := errors.New("provider down")
	agent := &agentMock{createThreadFn: func(ctx context.Context) (string, error) {
		return "", boom
	}}
	svc := services.NewSessionService(sessions.NewMemoryStore(), sessions.NewMemoryLocker(), agent, time.Minute, time.Second, nil)

	_, err := svc.EnsureThread(context.Background(), "sess1")
	require.ErrorIs(t, err, boom)

	// The lock was released, so a later attempt can succeed.
	agent.createThreadFn = func(ctx context.Context) (string, error) { return "thread-retry", nil }
	threadID, err := svc.EnsureThread(context.Background(), "sess1")
	require.NoError(t, err)
	require.Equal(t, "thread-retry", threadID)
}

func TestEndSessionForgetsThread(t *testing.T) {
	agent := &agentMock{}
	store := sessions.NewMemoryStore()
	svc := services.NewSessionService(store, sessions.NewMemoryLocker(), agent, time.Minute, time.Second, nil)

	first, err := svc.EnsureThread(context.Background(), "sess1")
	require.NoError(t, err)

	require.NoError(t, svc.EndSession(context.Background(), "sess1"))

	agent.createThreadFn = func(ctx context.Context) (string, error) { return "thread-new", nil }
	second, err := svc.EnsureThread(context.Background(), "sess1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
