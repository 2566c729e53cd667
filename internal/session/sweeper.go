package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper runs periodic expiry sweeps on a cron schedule. Schedules use
// the standard 5-field format or descriptors like "@every 5m".
type Sweeper struct {
	cron   *cron.Cron
	store  *Store
	maxAge time.Duration
}

// NewSweeper registers a sweep job against the store. maxAge is the idle
// age beyond which sessions are dropped.
func NewSweeper(store *Store, schedule string, maxAge time.Duration) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		store:  store,
		maxAge: maxAge,
	}

	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		removed := s.store.SweepExpired(ctx, s.maxAge)
		if removed > 0 {
			log.Info().
				Int("removed", removed).
				Int("remaining", s.store.Len()).
				Msg("session_sweep_completed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("registering sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins executing the sweep schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to complete.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Entries returns the number of registered cron entries (for testing).
func (s *Sweeper) Entries() int {
	return len(s.cron.Entries())
}
