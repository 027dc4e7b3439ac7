package utils

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolPreservesOrder(t *testing.T) {
	pool := NewWorkerPool(3, func(ctx context.Context, kind string) (string, error) {
		if kind == "Quest" {
			return "", errors.New("model refused")
		}
		return strings.ToLower(kind), nil
	})

	results, errs := pool.ProcessItems(context.Background(), []string{"Location", "Quest", "Item"})
	assert.Equal(t, []string{"location", "", "item"}, results)
	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.EqualError(t, errs[1], "model refused")
	assert.NoError(t, errs[2])
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	pool := NewWorkerPool(2, func(ctx context.Context, i int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return i * 2, nil
	})

	results, _ := pool.ProcessItems(context.Background(), []int{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []int{2, 4, 6, 8, 10, 12}, results)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	pool := NewWorkerPool(1, func(ctx context.Context, i int) (int, error) {
		if i == 1 {
			panic("boom")
		}
		return i, nil
	})

	results, errs := pool.ProcessItems(context.Background(), []int{0, 1, 2})
	var panicErr *PanicError
	assert.ErrorAs(t, errs[1], &panicErr)
	assert.Equal(t, 2, results[2])
}

func TestWorkerPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(1, func(ctx context.Context, i int) (int, error) {
		if i == 0 {
			cancel()
		}
		return i, nil
	})

	results, errs := pool.ProcessItems(ctx, []int{0, 1, 2})
	assert.Equal(t, 0, results[0])
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], context.Canceled)
	assert.ErrorIs(t, errs[2], context.Canceled)
}

func TestWorkerPoolEmpty(t *testing.T) {
	pool := NewWorkerPool(0, func(ctx context.Context, i int) (int, error) { return i, nil })
	assert.Equal(t, DefaultSemaphoreLimit, pool.Size())
	results, errs := pool.ProcessItems(context.Background(), nil)
	assert.Nil(t, results)
	assert.Nil(t, errs)
}

func TestGetSemaphoreLimit(t *testing.T) {
	t.Setenv("SEMAPHORE_LIMIT", "4")
	assert.Equal(t, 4, GetSemaphoreLimit())
	t.Setenv("SEMAPHORE_LIMIT", "-1")
	assert.Equal(t, DefaultSemaphoreLimit, GetSemaphoreLimit())
	t.Setenv("SEMAPHORE_LIMIT", "many")
	assert.Equal(t, DefaultSemaphoreLimit, GetSemaphoreLimit())
}
