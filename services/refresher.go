package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"facility-finder/storage"
	"facility-finder/utils"
)

// Purger removes expired result cache entries.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RefreshStats summarizes one refresh sweep.
type RefreshStats struct {
	Candidates int
	Refreshed  int
	Unresolved int
	Skipped    int
	Purged     int64
}

// Refresher re-fetches stale enrichment snapshots through a rate-limited
// worker pool, optionally on a cron schedule.
type Refresher struct {
	store     storage.FacilityStore
	enricher  *EnrichmentCache
	pool      *utils.WorkerPool
	inFlight  *utils.KeySet
	batchSize int
	ttl       time.Duration
	purger    Purger
	logger    *utils.Logger

	cron *cron.Cron
}

// NewRefresher creates a Refresher that handles batchSize facilities per sweep.
func NewRefresher(store storage.FacilityStore, enricher *EnrichmentCache, maxWorkers, rateLimitMs, batchSize int, ttl time.Duration, logger *utils.Logger) *Refresher {
	return &Refresher{
		store:     store,
		enricher:  enricher,
		pool:      utils.NewWorkerPool(maxWorkers, time.Duration(rateLimitMs)*time.Millisecond),
		inFlight:  utils.NewKeySet(),
		batchSize: batchSize,
		ttl:       ttl,
		logger:    logger,
	}
}

// WithPurger makes every sweep also purge expired result cache entries.
func (r *Refresher) WithPurger(p Purger) *Refresher {
	r.purger = p
	return r
}

// SetBatchSize changes how many facilities one sweep handles.
func (r *Refresher) SetBatchSize(n int) {
	r.batchSize = n
}

// RunOnce refreshes one batch of stale facilities and waits for it to finish.
func (r *Refresher) RunOnce(ctx context.Context) (RefreshStats, error) {
	var stats RefreshStats

	cutoff := r.enricher.now().Add(-r.ttl)
	stale, err := r.store.FindStale(ctx, cutoff, r.batchSize)
	if err != nil {
		return stats, fmt.Errorf("refresh: %w", err)
	}
	stats.Candidates = len(stale)
	r.logger.Info("[refresh] %d stale facilities (cutoff %s)", len(stale), cutoff.Format(time.RFC3339))

	var refreshed, unresolved, skipped int64
	var submitErr error
	callCtx := context.WithoutCancel(ctx)
	for i := range stale {
		f := &stale[i]
		if !r.inFlight.Add(f.CCN) {
			atomic.AddInt64(&skipped, 1)
			continue
		}
		err := r.pool.Submit(ctx, func() {
			defer r.inFlight.Remove(f.CCN)
			if _, ok := r.enricher.Refresh(callCtx, f); ok {
				atomic.AddInt64(&refreshed, 1)
			} else {
				atomic.AddInt64(&unresolved, 1)
			}
		})
		if err != nil {
			// Started jobs finish; the rest of the batch waits for the next sweep.
			r.inFlight.Remove(f.CCN)
			atomic.AddInt64(&skipped, int64(len(stale)-i))
			submitErr = err
			break
		}
	}
	r.pool.Wait()

	stats.Refreshed = int(refreshed)
	stats.Unresolved = int(unresolved)
	stats.Skipped = int(skipped)

	if submitErr != nil {
		r.logger.Warn("[refresh] sweep stopped early: %d refreshed, %d skipped", stats.Refreshed, stats.Skipped)
		return stats, fmt.Errorf("refresh: %w", submitErr)
	}

	if r.purger != nil {
		n, err := r.purger.PurgeExpired(ctx)
		if err != nil {
			r.logger.Warn("[refresh] purge failed: %v", err)
		}
		stats.Purged = n
	}

	r.logger.Info("[refresh] done: %d refreshed, %d unresolved, %d skipped, %d cache entries purged",
		stats.Refreshed, stats.Unresolved, stats.Skipped, stats.Purged)
	return stats, nil
}

// Start schedules RunOnce with a standard five-field cron spec.
func (r *Refresher) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := r.RunOnce(context.Background()); err != nil {
			r.logger.Error("[refresh] scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("refresh: schedule %q: %w", schedule, err)
	}
	c.Start()
	r.cron = c
	r.logger.Info("[refresh] scheduled with %q", schedule)
	return nil
}

// Stop cancels the schedule and waits for a running sweep.
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}
