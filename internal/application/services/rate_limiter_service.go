package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bibeksah-dev/NRAI-Kancha/internal/core/ports"
)

// RateLimiterService applies one fixed-window policy per client key.
type RateLimiterService struct {
	repo   ports.RateLimitRepository
	limit  int
	window time.Duration
	logger *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerMinute int
	Window            time.Duration
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	limit := 60
	window := time.Minute
	if cfg != nil {
		if cfg.RequestsPerMinute > 0 {
			limit = cfg.RequestsPerMinute
		}
		if cfg.Window > 0 {
			window = cfg.Window
		}
	}
	return &RateLimiterService{repo: repo, limit: limit, window: window, logger: logger}
}

func (s *RateLimiterService) Allow(ctx context.Context, key string) (bool, int, int, time.Time, error) {
	ttl := s.window * 2 // retain overlap window
	count, windowStart, err := s.repo.IncrementWindow(ctx, key, s.window, ttl)
	reset := windowStart.Add(s.window)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("key", key).WithError(err).Error("rate limiter: failed to increment window")
		}
		// fail open
		return true, s.limit, s.limit, reset, err
	}
	if count > s.limit {
		return false, 0, s.limit, reset, nil
	}
	return true, s.limit - count, s.limit, reset, nil
}

var _ ports.RateLimiterService = (*RateLimiterService)(nil)
