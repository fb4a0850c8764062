package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// Maintainable is the pool surface the maintenance runner drives.
type Maintainable interface {
	Maintain(ctx context.Context)
}

// MaintenanceRunner owns the periodic background work: sweeping expired
// cache entries, the cache pressure valve, and recycling stale pool
// connections. It takes the same locks as request-driven mutations; a
// failure in one step never stops the following cycles.
type MaintenanceRunner struct {
	cache         ports.AssistantCache
	pool          Maintainable
	sweepInterval time.Duration
	poolInterval  time.Duration
	logger        *logrus.Logger
}

func NewMaintenanceRunner(assistantCache ports.AssistantCache, pool Maintainable, sweepInterval, poolInterval time.Duration, logger *logrus.Logger) *MaintenanceRunner {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	if poolInterval <= 0 {
		poolInterval = time.Minute
	}
	return &MaintenanceRunner{
		cache:         assistantCache,
		pool:          pool,
		sweepInterval: sweepInterval,
		poolInterval:  poolInterval,
		logger:        logger,
	}
}

// Run blocks until ctx is cancelled. Started by the composition root in its
// own goroutine.
func (m *MaintenanceRunner) Run(ctx context.Context) {
	sweep := time.NewTicker(m.sweepInterval)
	defer sweep.Stop()
	pool := time.NewTicker(m.poolInterval)
	defer pool.Stop()

	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{
			"sweep_interval": m.sweepInterval.String(),
			"pool_interval":  m.poolInterval.String(),
		}).Info("maintenance runner started")
	}

	for {
		select {
		case <-ctx.Done():
			if m.logger != nil {
				m.logger.Info("maintenance runner stopped")
			}
			return
		case <-sweep.C:
			m.cycle(func() {
				removed := m.cache.Sweep()
				removed += m.cache.Prune()
				if removed > 0 && m.logger != nil {
					m.logger.WithField("removed", removed).Debug("cache maintenance cycle")
				}
			})
		case <-pool.C:
			m.cycle(func() { m.pool.Maintain(ctx) })
		}
	}
}

// cycle isolates a panicking maintenance step so the runner keeps going.
func (m *MaintenanceRunner) cycle(step func()) {
	defer func() {
		if r := recover(); r != nil && m.logger != nil {
			m.logger.WithField("panic", r).Error("maintenance step panicked")
		}
	}()
	step()
}
