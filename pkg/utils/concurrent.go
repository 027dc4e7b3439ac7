package utils

import (
	"context"
	"sync"
)

// Worker processes a single item.
type Worker[T any, R any] func(ctx context.Context, item T) (R, error)

// WorkerPool runs a Worker over a batch of items with at most numWorkers
// goroutines in flight.
//
// Goroutine Lifecycle:
//   - Workers are started by ProcessItems and exit when the queue drains or
//     the context is cancelled.
//   - ProcessItems blocks until every worker has returned.
//   - A panicking worker is recovered and its item reports a *PanicError.
//   - Items never handed to a worker because of cancellation report ctx.Err().
//
// Example:
//
//	pool := NewWorkerPool(4, func(ctx context.Context, kind string) (int, error) {
//	    return len(kind), nil
//	})
//	results, errs := pool.ProcessItems(ctx, []string{"Location", "Item"})
type WorkerPool[T any, R any] struct {
	numWorkers int
	worker     Worker[T, R]
}

// NewWorkerPool creates a pool. A non-positive numWorkers falls back to
// GetSemaphoreLimit.
func NewWorkerPool[T any, R any](numWorkers int, worker Worker[T, R]) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = GetSemaphoreLimit()
	}
	return &WorkerPool[T, R]{
		numWorkers: numWorkers,
		worker:     worker,
	}
}

// Size returns the number of workers.
func (wp *WorkerPool[T, R]) Size() int {
	return wp.numWorkers
}

type indexedItem[T any] struct {
	item  T
	index int
}

// ProcessItems runs the worker on every item and returns results and errors
// aligned with items.
func (wp *WorkerPool[T, R]) ProcessItems(ctx context.Context, items []T) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}

	queue := make(chan indexedItem[T], len(items))
	for i, item := range items {
		queue <- indexedItem[T]{item: item, index: i}
	}
	close(queue)

	results := make([]R, len(items))
	errs := make([]error, len(items))
	started := make([]bool, len(items))

	workers := wp.numWorkers
	if workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				// cancellation wins over a non-empty queue
				if ctx.Err() != nil {
					return
				}
				select {
				case next, ok := <-queue:
					if !ok {
						return
					}
					started[next.index] = true
					wp.run(ctx, next, results, errs)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		for i := range items {
			if !started[i] {
				errs[i] = ctxErr
			}
		}
	}
	return results, errs
}

func (wp *WorkerPool[T, R]) run(ctx context.Context, next indexedItem[T], results []R, errs []error) {
	defer RecoverWithCallback(func(err error) {
		errs[next.index] = err
	})
	results[next.index], errs[next.index] = wp.worker(ctx, next.item)
}
