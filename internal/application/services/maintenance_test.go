package services_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/application/services"
	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

type cacheMock struct {
	ports.AssistantCache
	sweeps int64
	prunes int64
	panics bool
}

func (m *cacheMock) Sweep() int {
	if m.panics {
		panic("broken tier")
	}
	atomic.AddInt64(&m.sweeps, 1)
	return 0
}

func (m *cacheMock) Prune() int {
	atomic.AddInt64(&m.prunes, 1)
	return 0
}

type maintainableMock struct{ calls int64 }

func (m *maintainableMock) Maintain(context.Context) { atomic.AddInt64(&m.calls, 1) }

func TestRunnerDrivesCacheAndPool(t *testing.T) {
	cache := &cacheMock{}
	pool := &maintainableMock{}
	runner := services.NewMaintenanceRunner(cache, pool, 10*time.Millisecond, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&cache.sweeps) >= 2 &&
			atomic.LoadInt64(&cache.prunes) >= 2 &&
			atomic.LoadInt64(&pool.calls) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRunnerSurvivesPanickingStep(t *testing.T) {
	cache := &cacheMock{panics: true}
	pool := &maintainableMock{}
	runner := services.NewMaintenanceRunner(cache, pool, 10*time.Millisecond, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Run(ctx)

	// The cache step panics every cycle; the pool step must keep running.
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&pool.calls) >= 3
	}, 2*time.Second, 5*time.Millisecond)
}
