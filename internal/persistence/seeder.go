package persistence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clubmap/core-go/internal/metrics"
	"clubmap/core-go/internal/registry"
	"clubmap/core-go/internal/roster"
)

// Seeder runs the idempotent position seed once when the service mounts,
// retrying with backoff until one pass completes cleanly or attempts run out.
type Seeder struct {
	log         zerolog.Logger
	reg         *registry.Registry
	target      registry.Seeder
	runDelay    time.Duration
	retryDelay  time.Duration
	maxAttempts int
	metrics     *metrics.Metrics
}

type SeederOptions struct {
	RunDelay    time.Duration
	RetryDelay  time.Duration
	MaxAttempts int
}

func NewSeeder(log zerolog.Logger, clubs []roster.Club, target registry.Seeder, opts SeederOptions, m *metrics.Metrics) *Seeder {
	rd := opts.RunDelay
	if rd < 0 {
		rd = 0
	}
	retry := opts.RetryDelay
	if retry <= 0 {
		retry = 2 * time.Second
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &Seeder{
		log:         log,
		reg:         registry.New(clubs),
		target:      target,
		runDelay:    rd,
		retryDelay:  retry,
		maxAttempts: attempts,
		metrics:     m,
	}
}

// Run returns once seeding succeeded, attempts are exhausted, or ctx ends.
func (s *Seeder) Run(ctx context.Context) {
	if s == nil || s.target == nil {
		return
	}

	timer := time.NewTimer(s.runDelay)
	defer timer.Stop()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := s.reg.EnsureSeeded(ctx, s.target)
		if err == nil {
			s.metrics.IncSeedRun(metrics.ResultOK)
			return
		}
		s.metrics.IncSeedRun(metrics.ResultError)
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("position seeding incomplete")
		timer.Reset(backoffDuration(s.retryDelay, attempt))
	}
	s.log.Error().Int("attempts", s.maxAttempts).Msg("position seeding gave up")
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if failures <= 0 {
		return base
	}
	if failures > 5 {
		failures = 5
	}
	d := base * time.Duration(1<<failures)
	if d > time.Minute {
		d = time.Minute
	}
	return d
}
