package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	defaultSweepSchedule = "@hourly"
	sweepTimeout         = 5 * time.Minute
)

// AvailabilityRefresher recomputes donor availability in bulk
type AvailabilityRefresher interface {
	RefreshAllAvailability(ctx context.Context) (int, error)
}

// AvailabilitySweeper periodically brings every donor's availability flag in
// line with their last donation date, so donors whose cooldown has lapsed
// become available without being read first
type AvailabilitySweeper struct {
	donors   AvailabilityRefresher
	cron     *cron.Cron
	schedule string
}

// SweeperOption customises the AvailabilitySweeper
type SweeperOption func(*AvailabilitySweeper)

// WithSweepCron injects a preconfigured cron instance, primarily for testing
func WithSweepCron(c *cron.Cron) SweeperOption {
	return func(s *AvailabilitySweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSweepSchedule overrides the cron specification of the sweep
func WithSweepSchedule(spec string) SweeperOption {
	return func(s *AvailabilitySweeper) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewAvailabilitySweeper creates a sweeper over donors
func NewAvailabilitySweeper(donors AvailabilityRefresher, opts ...SweeperOption) *AvailabilitySweeper {
	s := &AvailabilitySweeper{
		donors:   donors,
		schedule: defaultSweepSchedule,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return s
}

// Start registers the sweep and launches the scheduler
func (s *AvailabilitySweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Str("schedule", s.schedule).Msg("availability sweeper started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (s *AvailabilitySweeper) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs a single sweep and returns the number of donors updated
func (s *AvailabilitySweeper) RunOnce(ctx context.Context) int {
	updated, err := s.donors.RefreshAllAvailability(ctx)
	if err != nil {
		log.Warn().Err(err).Int("updated", updated).Msg("availability sweep failed")
		return updated
	}
	log.Info().Int("updated", updated).Msg("availability sweep completed")
	return updated
}
