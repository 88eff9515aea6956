package services

import (
	"context"
	"sync"
	"time"

	"facility-finder/models"
	"facility-finder/storage"
	"facility-finder/utils"
)

const writebackTimeout = 10 * time.Second

type writebackJob struct {
	ccn   string
	cache *models.GoogleCache
}

// WritebackQueue persists enrichment snapshots in the background. Enqueue
// never blocks; a full queue drops the write.
type WritebackQueue struct {
	writer storage.EnrichmentWriter
	logger *utils.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan writebackJob
	wg     sync.WaitGroup
}

// NewWritebackQueue starts workers goroutines draining a queue of size buffer.
func NewWritebackQueue(writer storage.EnrichmentWriter, workers, buffer int, logger *utils.Logger) *WritebackQueue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	q := &WritebackQueue{
		writer: writer,
		logger: logger,
		jobs:   make(chan writebackJob, buffer),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Enqueue schedules a write and reports whether it was accepted.
func (q *WritebackQueue) Enqueue(ccn string, cache *models.GoogleCache) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("[writeback] queue closed, dropping snapshot for %s", ccn)
		return false
	}
	select {
	case q.jobs <- writebackJob{ccn: ccn, cache: cache}:
		return true
	default:
		q.logger.Warn("[writeback] queue full, dropping snapshot for %s", ccn)
		return false
	}
}

func (q *WritebackQueue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), writebackTimeout)
		if err := q.writer.UpdateEnrichment(ctx, job.ccn, job.cache); err != nil {
			q.logger.Error("[writeback] update %s failed: %v", job.ccn, err)
		}
		cancel()
	}
}

// Close stops accepting writes and waits until pending ones are done.
func (q *WritebackQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}
