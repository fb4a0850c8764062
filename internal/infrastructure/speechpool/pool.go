package speechpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// Factory opens one speech-provider connection. Opening is the expensive
// step the pool amortizes (auth token fetch, TLS setup).
type Factory func(ctx context.Context) (ports.SpeechConnection, error)

// Config bounds the pool.
type Config struct {
	Size           int
	StaleThreshold time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{Size: 5, StaleThreshold: 5 * time.Minute}
}

// Slot is one pool entry: a connection handle plus its in-use and timing
// metadata. Temporary slots absorb overflow and are destroyed on release.
type Slot struct {
	conn       ports.SpeechConnection
	inUse      bool
	refreshing bool
	createdAt  time.Time
	lastUsedAt time.Time
	temporary  bool
}

func (s *Slot) Conn() ports.SpeechConnection { return s.conn }
func (s *Slot) Temporary() bool              { return s.temporary }

// Pool maintains Size pre-warmed reusable connections. Acquire never blocks
// and never double-issues a slot: the find-available-and-mark-in-use step
// runs under the pool lock. Exhaustion degrades to temporary slots rather
// than failing.
type Pool struct {
	mu      sync.Mutex
	slots   []*Slot
	factory Factory
	cfg     Config
	logger  *logrus.Logger

	created   uint64
	reused    uint64
	destroyed uint64

	now func() time.Time
}

// New eagerly opens cfg.Size permanent connections. Slots whose initial open
// fails are retried lazily by Maintain; New only fails when every open fails.
func New(ctx context.Context, cfg Config, factory Factory, logger *logrus.Logger) (*Pool, error) {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	p := &Pool{factory: factory, cfg: cfg, logger: logger, now: time.Now}
	opened := 0
	for i := 0; i < cfg.Size; i++ {
		conn, err := factory(ctx)
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithField("slot", i).Warn("speechpool: initial connection open failed")
			}
			p.slots = append(p.slots, &Slot{createdAt: p.now(), lastUsedAt: p.now()})
			continue
		}
		p.created++
		opened++
		p.slots = append(p.slots, &Slot{conn: conn, createdAt: p.now(), lastUsedAt: p.now()})
	}
	if opened == 0 {
		p.CloseAll()
		return nil, fmt.Errorf("speechpool: could not open any of %d connections", cfg.Size)
	}
	poolSizeGauge.Set(float64(cfg.Size))
	return p, nil
}

// Acquire returns an available permanent slot, or a fresh temporary one when
// all permanents are busy. It only fails when a new connection has to be
// opened and the factory errors.
func (p *Pool) Acquire(ctx context.Context) (ports.Lease, error) {
	p.mu.Lock()
	for _, s := range p.slots {
		if !s.inUse && !s.refreshing && s.conn != nil {
			s.inUse = true
			s.lastUsedAt = p.now()
			p.reused++
			p.mu.Unlock()
			acquisitions.WithLabelValues("reused").Inc()
			inUseGauge.Inc()
			return s, nil
		}
	}
	p.mu.Unlock()

	// Pool exhausted (or holes from failed opens): open a throwaway
	// connection outside the lock.
	conn, err := p.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("speechpool: overflow connection: %w", err)
	}
	p.mu.Lock()
	p.created++
	p.mu.Unlock()
	acquisitions.WithLabelValues("temporary").Inc()
	inUseGauge.Inc()
	now := p.now()
	return &Slot{conn: conn, inUse: true, createdAt: now, lastUsedAt: now, temporary: true}, nil
}

// Release returns a permanent slot to the pool, or destroys a temporary one.
// Must be called exactly once per successful Acquire, on every exit path.
func (p *Pool) Release(lease ports.Lease) {
	s, ok := lease.(*Slot)
	if !ok || s == nil {
		return
	}
	inUseGauge.Dec()
	if s.temporary {
		if s.conn != nil {
			if err := s.conn.Close(); err != nil && p.logger != nil {
				p.logger.WithError(err).Warn("speechpool: closing temporary connection")
			}
		}
		p.mu.Lock()
		p.destroyed++
		p.mu.Unlock()
		return
	}
	p.mu.Lock()
	s.inUse = false
	s.lastUsedAt = p.now()
	p.mu.Unlock()
}

// Maintain recreates idle permanent connections that have not been used for
// the stale threshold, and repairs slots left without a connection by a
// failed open. In-use slots are never touched, and one slot's failure never
// stops the sweep.
func (p *Pool) Maintain(ctx context.Context) {
	p.mu.Lock()
	stale := make([]*Slot, 0, len(p.slots))
	cutoff := p.now().Add(-p.cfg.StaleThreshold)
	for _, s := range p.slots {
		if s.inUse || s.refreshing {
			continue
		}
		if s.conn == nil || s.lastUsedAt.Before(cutoff) {
			// Claim the slot so a concurrent Acquire cannot issue it while
			// its connection is being swapped. The claim is distinct from
			// inUse so Stats never reports a maintenance hold as an issued
			// lease.
			s.refreshing = true
			stale = append(stale, s)
		}
	}
	p.mu.Unlock()

	for _, s := range stale {
		p.refreshSlot(ctx, s)
	}
}

func (p *Pool) refreshSlot(ctx context.Context, s *Slot) {
	old := s.conn
	fresh, err := p.factory(ctx)

	p.mu.Lock()
	if err != nil {
		// Keep the old handle; a stale connection beats none.
		s.refreshing = false
		p.mu.Unlock()
		if p.logger != nil {
			p.logger.WithError(err).Warn("speechpool: stale connection refresh failed")
		}
		return
	}
	s.conn = fresh
	s.refreshing = false
	s.createdAt = p.now()
	s.lastUsedAt = p.now()
	p.created++
	if old != nil {
		p.destroyed++
	}
	p.mu.Unlock()

	if old != nil {
		if cerr := old.Close(); cerr != nil && p.logger != nil {
			p.logger.WithError(cerr).Warn("speechpool: closing stale connection")
		}
	}
	if p.logger != nil {
		p.logger.Debug("speechpool: refreshed stale connection")
	}
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() ports.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := ports.PoolStats{
		Size:      len(p.slots),
		Created:   p.created,
		Reused:    p.reused,
		Destroyed: p.destroyed,
	}
	for _, s := range p.slots {
		switch {
		case s.inUse:
			st.InUse++
		case s.refreshing:
			st.Refreshing++
		case s.conn != nil:
			st.Available++
		}
	}
	if total := st.Created + st.Reused; total > 0 {
		st.ReuseRate = float64(st.Reused) / float64(total)
	}
	return st
}

// CloseAll destroys every connection, in use or not. Called only at process
// shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots {
		if s.conn == nil {
			continue
		}
		if err := s.conn.Close(); err != nil && p.logger != nil {
			p.logger.WithError(err).Warn("speechpool: closing connection at shutdown")
		}
		s.conn = nil
		p.destroyed++
	}
	if p.logger != nil {
		p.logger.Info("speechpool: all connections closed")
	}
}

var _ ports.ConnectionPool = (*Pool)(nil)
