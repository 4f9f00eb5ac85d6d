package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// WorkerPool runs jobs on at most maxWorkers goroutines and keeps a minimum
// interval between job starts.
type WorkerPool struct {
	sem         *semaphore.Weighted
	minInterval time.Duration
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastStart   time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
// A maxWorkers below 1 is treated as 1.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		sem:         semaphore.NewWeighted(int64(maxWorkers)),
		minInterval: time.Duration(rateLimitMs) * time.Millisecond,
	}
}

// Submit blocks until a worker slot is free, then runs job in a goroutine.
// It returns ctx.Err() without running job when ctx ends first.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) error {
	if err := wp.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	wp.wg.Add(1)

	go func() {
		defer wp.wg.Done()
		defer wp.sem.Release(1)

		wp.enforceRateLimit()
		job()
	}()
	return nil
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	if wp.minInterval <= 0 {
		return
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.lastStart.IsZero() {
		if elapsed := time.Since(wp.lastStart); elapsed < wp.minInterval {
			time.Sleep(wp.minInterval - elapsed)
		}
	}
	wp.lastStart = time.Now()
}
