// Package sync schedules periodic resolution of every configured source.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/sdkforge/repo-resolver/internal/service"
)

// maxRetries bounds how often a failing resync round is retried before
// waiting for the next interval tick.
const maxRetries = 3

// Scheduler drives periodic source resolution. One round loads every
// configured source; a round where every source fails is retried with
// exponential backoff before giving up until the next tick.
type Scheduler struct {
	svc      *service.Resolver
	interval time.Duration
	log      *zap.SugaredLogger
}

// NewScheduler creates a Scheduler resyncing at the given interval.
func NewScheduler(svc *service.Resolver, interval time.Duration, log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		svc:      svc,
		interval: interval,
		log:      log,
	}
}

// Run blocks until the context is canceled, resyncing once immediately and
// then on every interval tick. It always returns nil on cancellation so a
// clean shutdown is not reported as a failure.
func (s *Scheduler) Run(ctx context.Context) error {
	s.resync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.resync(ctx)
		}
	}
}

// resync runs one round of loads, retrying with backoff while every source
// keeps failing.
func (s *Scheduler) resync(ctx context.Context) {
	round := func() (map[string]*service.SourceInfo, error) {
		outcomes, err := s.svc.LoadAll(ctx)
		if err != nil {
			return nil, err
		}

		failed := 0
		for _, out := range outcomes {
			if out.Packages == nil {
				failed++
			}
		}
		if len(outcomes) > 0 && failed == len(outcomes) {
			// Likely a transient network problem; worth retrying soon.
			return nil, fmt.Errorf("all %d sources failed to load", failed)
		}

		s.log.Infof("Resync complete: %d/%d sources loaded", len(outcomes)-failed, len(outcomes))
		return nil, nil
	}

	_, err := backoff.Retry(ctx, round,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxRetries),
	)
	if err != nil && ctx.Err() == nil {
		s.log.Warnf("Resync failed: %v", err)
	}
}
