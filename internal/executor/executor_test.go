package executor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transient struct{ msg string }

func (e transient) Error() string   { return e.msg }
func (e transient) Retriable() bool { return true }

func items(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func newExecutor(t *testing.T, batchSize, workers, maxRetries int) *Executor {
	t.Helper()
	e, err := New(Config{
		BatchSize:    batchSize,
		MaxWorkers:   workers,
		MaxRetries:   maxRetries,
		RetryBackoff: time.Millisecond,
		MaxBackoff:   2 * time.Millisecond,
	})
	require.NoError(t, err)
	return e
}

func TestExecuteCallsPerBatch(t *testing.T) {
	cases := []struct {
		n, size   int
		calls     int
		lastBatch int
	}{
		{n: 10, size: 3, calls: 4, lastBatch: 1},
		{n: 9, size: 3, calls: 3, lastBatch: 3},
		{n: 1, size: 100, calls: 1, lastBatch: 1},
		{n: 100, size: 1, calls: 100, lastBatch: 1},
	}
	for _, tc := range cases {
		e := newExecutor(t, tc.size, 4, 0)

		var mu sync.Mutex
		var sizes []int
		var seen []int
		err := Execute(context.Background(), e, items(tc.n), func(ctx context.Context, worker int, batch []int) error {
			mu.Lock()
			defer mu.Unlock()
			sizes = append(sizes, len(batch))
			seen = append(seen, batch...)
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, sizes, tc.calls)

		sort.Ints(seen)
		assert.Equal(t, items(tc.n), seen)

		short := 0
		for _, s := range sizes {
			if s != tc.size {
				short++
				assert.Equal(t, tc.lastBatch, s)
			}
		}
		assert.LessOrEqual(t, short, 1)
	}
}

func TestExecuteEmptyInput(t *testing.T) {
	e := newExecutor(t, 5, 2, 0)
	called := false
	err := Execute(context.Background(), e, []int{}, func(ctx context.Context, worker int, batch []int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRetriableBatchRunsKPlusOneTimes(t *testing.T) {
	const k = 3
	e := newExecutor(t, 10, 1, 0)

	var calls int32
	err := Execute(context.Background(), e, items(5), func(ctx context.Context, worker int, batch []int) error {
		if atomic.AddInt32(&calls, 1) <= k {
			return transient{msg: "node is behind"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(k+1), atomic.LoadInt32(&calls))
}

func TestRetriesAreBounded(t *testing.T) {
	e := newExecutor(t, 10, 1, 2)

	var calls int32
	err := Execute(context.Background(), e, items(5), func(ctx context.Context, worker int, batch []int) error {
		atomic.AddInt32(&calls, 1)
		return transient{msg: "still behind"}
	})
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Contains(t, err.Error(), "batch items 0-4")
}

func TestFatalErrorStopsSubmission(t *testing.T) {
	e := newExecutor(t, 1, 2, 0)
	fatal := errors.New("invalid params")

	var calls int32
	err := Execute(context.Background(), e, items(1000), func(ctx context.Context, worker int, batch []int) error {
		atomic.AddInt32(&calls, 1)
		if batch[0] == 3 {
			return fatal
		}
		time.Sleep(time.Millisecond)
		return nil
	})
	require.ErrorIs(t, err, fatal)
	assert.Less(t, atomic.LoadInt32(&calls), int32(1000))
}

func TestFatalErrorDrainsInFlightBatches(t *testing.T) {
	e := newExecutor(t, 1, 2, 0)
	fatal := errors.New("boom")

	release := make(chan struct{})
	var finished int32
	err := Execute(context.Background(), e, items(2), func(ctx context.Context, worker int, batch []int) error {
		if batch[0] == 0 {
			<-release
			atomic.AddInt32(&finished, 1)
			return nil
		}
		close(release)
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))
}

func TestWorkerIndexesAreWithinPool(t *testing.T) {
	e := newExecutor(t, 1, 3, 0)
	var mu sync.Mutex
	workers := map[int]bool{}
	err := Execute(context.Background(), e, items(30), func(ctx context.Context, worker int, batch []int) error {
		mu.Lock()
		workers[worker] = true
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	for w := range workers {
		assert.True(t, w >= 0 && w < 3)
	}
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	e := newExecutor(t, 1, 1, 0)
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	err := Execute(ctx, e, items(1), func(ctx context.Context, worker int, batch []int) error {
		if atomic.AddInt32(&calls, 1) == 2 {
			cancel()
		}
		return transient{msg: "retry me"}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{BatchSize: 0, MaxWorkers: 1})
	assert.Error(t, err)
	_, err = New(Config{BatchSize: 1, MaxWorkers: 0})
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	batches := Split(items(5), 2)
	require.Len(t, batches, 3)
	assert.Equal(t, 0, batches[0].Start)
	assert.Equal(t, 4, batches[2].Start)
	assert.Equal(t, []int{4}, batches[2].Items)
}
