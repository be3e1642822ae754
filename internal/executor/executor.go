package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solanaetl/internal/metrics"
)

// WorkFunc processes one batch. worker identifies the pool slot running it,
// so callers can keep per-worker resources such as RPC clients.
type WorkFunc[T any] func(ctx context.Context, worker int, batch []T) error

// Config holds executor settings.
type Config struct {
	BatchSize  int
	MaxWorkers int
	// MaxRetries bounds retries of a retriable batch failure. Zero retries
	// until success or cancellation.
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

// Executor runs batches on a bounded worker pool.
type Executor struct {
	cfg    Config
	logger *zap.Logger
}

// New validates cfg and builds an Executor.
func New(cfg Config) (*Executor, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if cfg.MaxWorkers <= 0 {
		return nil, fmt.Errorf("max workers must be greater than zero")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.RetryBackoff {
		cfg.MaxBackoff = 30 * time.Second
		if cfg.MaxBackoff < cfg.RetryBackoff {
			cfg.MaxBackoff = cfg.RetryBackoff
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{cfg: cfg, logger: logger}, nil
}

// Workers returns the pool size.
func (e *Executor) Workers() int { return e.cfg.MaxWorkers }

// BatchSize returns the configured batch size.
func (e *Executor) BatchSize() int { return e.cfg.BatchSize }

// Batch is a consecutive slice of the input.
type Batch[T any] struct {
	// Start is the offset of the first item in the input.
	Start int
	Items []T
}

// Split partitions items into consecutive batches of size; the last one may be shorter.
func Split[T any](items []T, size int) []Batch[T] {
	if size <= 0 {
		return nil
	}
	batches := make([]Batch[T], 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, Batch[T]{Start: start, Items: items[start:end]})
	}
	return batches
}

// Execute feeds the batches of items to the worker pool and blocks until all
// have completed. The first non-retriable or exhausted failure stops new
// submissions; batches already running are allowed to finish before the
// error is returned. Completion order is not preserved.
func Execute[T any](ctx context.Context, e *Executor, items []T, work WorkFunc[T]) error {
	batches := Split(items, e.cfg.BatchSize)
	if len(batches) == 0 {
		return nil
	}
	workers := e.cfg.MaxWorkers
	if workers > len(batches) {
		workers = len(batches)
	}

	var (
		g        errgroup.Group
		stopOnce sync.Once
		stopped  = make(chan struct{})
		queue    = make(chan Batch[T])
	)
	stop := func() { stopOnce.Do(func() { close(stopped) }) }

	for w := 0; w < workers; w++ {
		worker := w
		g.Go(func() error {
			for batch := range queue {
				if err := runBatch(ctx, e, worker, batch, work); err != nil {
					stop()
					return err
				}
			}
			return nil
		})
	}

submit:
	for _, batch := range batches {
		select {
		case queue <- batch:
		case <-stopped:
			break submit
		case <-ctx.Done():
			break submit
		}
	}
	close(queue)

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func runBatch[T any](ctx context.Context, e *Executor, worker int, batch Batch[T], work WorkFunc[T]) error {
	end := batch.Start + len(batch.Items) - 1
	err := withRetry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, e.cfg.MaxBackoff,
		func(ctx context.Context) error { return work(ctx, worker, batch.Items) },
		func(attempt int, err error) {
			e.cfg.Metrics.RecordBatchRetry()
			e.logger.Warn("batch failed, retrying",
				zap.Int("start", batch.Start),
				zap.Int("end", end),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		e.cfg.Metrics.RecordBatch("failed")
		return fmt.Errorf("batch items %d-%d: %w", batch.Start, end, err)
	}
	e.cfg.Metrics.RecordBatch("ok")
	return nil
}

func isRetriable(err error) bool {
	var r interface{ Retriable() bool }
	return errors.As(err, &r) && r.Retriable()
}
