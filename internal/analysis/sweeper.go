package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/sentryai/sentry/internal/db"
	"github.com/sentryai/sentry/internal/logging"
)

// StaleStore lists contracts stuck in processing and finalizes them.
type StaleStore interface {
	Recorder
	ListStaleContracts(ctx context.Context, createdBefore int64) ([]*db.Contract, error)
}

// StaleMessage is the error recorded for jobs lost to a restart.
const StaleMessage = "analysis was interrupted before finishing; please submit the contract again"

// Sweeper moves contracts that have been processing for too long, and that
// no worker in this process owns, to the error state.
type Sweeper struct {
	store      StaleStore
	pool       *Pool
	staleAfter time.Duration
	now        func() time.Time
	scheduler  *cronlib.Cron
}

func NewSweeper(store StaleStore, pool *Pool, staleAfter time.Duration) *Sweeper {
	return &Sweeper{
		store:      store,
		pool:       pool,
		staleAfter: staleAfter,
		now:        time.Now,
		scheduler:  cronlib.New(),
	}
}

// Sweep finalizes stale contracts and returns how many it closed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter).UnixMicro()
	stale, err := s.store.ListStaleContracts(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale contracts: %w", err)
	}

	result, err := ErrorReport(StaleMessage).Encode()
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, c := range stale {
		if s.pool != nil && s.pool.Tracked(c.ID) {
			continue
		}
		err := s.store.CompleteContract(ctx, c.ID, db.ContractError, result)
		switch {
		case err == nil:
			closed++
		case errors.Is(err, db.ErrAlreadyFinalized), errors.Is(err, db.ErrNotFound):
			// finished or deleted since the listing
		default:
			return closed, err
		}
	}
	if closed > 0 {
		logging.Warnf("[analysis] marked %d stale contracts as failed", closed)
	}
	return closed, nil
}

// Start runs one sweep now and then on the cron schedule until Stop.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	if _, err := s.Sweep(ctx); err != nil {
		logging.Errorf("[analysis] initial sweep: %v", err)
	}
	_, err := s.scheduler.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			logging.Errorf("[analysis] sweep: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.scheduler.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *Sweeper) Stop() {
	<-s.scheduler.Stop().Done()
}
