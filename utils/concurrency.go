package utils

import (
	"context"
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines and spaces job
// starts at least rateLimit apart.
type WorkerPool struct {
	slots     chan struct{}
	rateLimit time.Duration
	wg        sync.WaitGroup

	mu       sync.Mutex
	nextSlot time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and minimum
// gap between job starts.
func NewWorkerPool(maxWorkers int, rateLimit time.Duration) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if rateLimit < 0 {
		rateLimit = 0
	}
	return &WorkerPool{
		slots:     make(chan struct{}, maxWorkers),
		rateLimit: rateLimit,
	}
}

// Submit waits for a free worker and for the job's start slot, then runs
// job in the background. If ctx ends first the job is not run and ctx's
// error is returned.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) error {
	select {
	case wp.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := wp.waitForSlot(ctx); err != nil {
		<-wp.slots
		return err
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.slots }()
		job()
	}()
	return nil
}

// Wait blocks until all started jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// waitForSlot reserves the next start time and sleeps until it arrives.
// The reservation is kept even when ctx ends, so later jobs stay spaced.
func (wp *WorkerPool) waitForSlot(ctx context.Context) error {
	if wp.rateLimit == 0 {
		return ctx.Err()
	}

	wp.mu.Lock()
	now := time.Now()
	start := wp.nextSlot
	if start.Before(now) {
		start = now
	}
	wp.nextSlot = start.Add(wp.rateLimit)
	wp.mu.Unlock()

	delay := time.Until(start)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// KeySet is a thread-safe set of string keys, used to claim work items.
type KeySet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Remove deletes the key from the set.
func (s *KeySet) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
}
