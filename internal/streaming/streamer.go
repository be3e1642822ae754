package streaming

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solanaetl/internal/metrics"
)

// BlockchainAdapter is what the streamer drives each sync round.
type BlockchainAdapter interface {
	Open(ctx context.Context) error
	CurrentBlock(ctx context.Context) (uint64, error)
	ExportAll(ctx context.Context, start, end uint64) error
	Close() error
}

// Config holds streamer settings.
type Config struct {
	// StartBlock, when set, is the first block to export. It conflicts with
	// an existing saved state.
	StartBlock     *uint64
	Lag            uint64
	Period         time.Duration
	BlockBatchSize uint64
}

// Streamer follows the chain head, exporting up to BlockBatchSize blocks per
// round and saving the last synced block after every round.
type Streamer struct {
	cfg     Config
	adapter BlockchainAdapter
	state   StateStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewStreamer(cfg Config, adapter BlockchainAdapter, state StateStore, m *metrics.Metrics, logger *zap.Logger) (*Streamer, error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter is nil")
	}
	if state == nil {
		return nil, fmt.Errorf("state store is nil")
	}
	if cfg.BlockBatchSize == 0 {
		return nil, fmt.Errorf("block batch size must be greater than zero")
	}
	if cfg.Period <= 0 {
		cfg.Period = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Streamer{cfg: cfg, adapter: adapter, state: state, metrics: m, logger: logger}, nil
}

// Run streams until ctx is cancelled. A failed round is logged and retried
// after the poll period.
func (s *Streamer) Run(ctx context.Context) error {
	if err := s.adapter.Open(ctx); err != nil {
		return fmt.Errorf("open adapter: %w", err)
	}
	defer func() {
		if err := s.adapter.Close(); err != nil {
			s.logger.Warn("close adapter", zap.Error(err))
		}
	}()

	next, err := s.initialBlock(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("stream start", zap.Uint64("from", next), zap.Uint64("lag", s.cfg.Lag))

	for {
		synced, err := s.syncCycle(ctx, &next)
		if ctx.Err() != nil {
			s.logger.Info("stream stopped", zap.Uint64("next", next))
			return nil
		}
		switch {
		case err != nil:
			s.logger.Error("sync round failed", zap.Uint64("from", next), zap.Error(err))
		case synced == 0:
			s.logger.Info("nothing to sync, sleeping", zap.Duration("period", s.cfg.Period))
		default:
			continue
		}
		if !sleep(ctx, s.cfg.Period) {
			s.logger.Info("stream stopped", zap.Uint64("next", next))
			return nil
		}
	}
}

func (s *Streamer) initialBlock(ctx context.Context) (uint64, error) {
	last, ok, err := s.state.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load last synced block: %w", err)
	}
	switch {
	case ok && s.cfg.StartBlock != nil:
		return 0, fmt.Errorf("last synced block %d is already saved; remove the state or drop start-block", last)
	case ok:
		return last + 1, nil
	case s.cfg.StartBlock != nil:
		return *s.cfg.StartBlock, nil
	}

	head, err := s.adapter.CurrentBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("get current block: %w", err)
	}
	start := uint64(0)
	if head > s.cfg.Lag {
		start = head - s.cfg.Lag
	}
	s.logger.Info("no saved state, starting at the lagged head", zap.Uint64("head", head), zap.Uint64("from", start))
	return start, nil
}

func (s *Streamer) syncCycle(ctx context.Context, next *uint64) (uint64, error) {
	head, err := s.adapter.CurrentBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("get current block: %w", err)
	}
	if head < s.cfg.Lag {
		return 0, nil
	}
	target := head - s.cfg.Lag
	if limit := *next + s.cfg.BlockBatchSize - 1; target > limit {
		target = limit
	}
	if target < *next {
		return 0, nil
	}

	s.logger.Info("sync round",
		zap.Uint64("head", head),
		zap.Uint64("from", *next),
		zap.Uint64("to", target),
	)
	if err := s.adapter.ExportAll(ctx, *next, target); err != nil {
		return 0, fmt.Errorf("export %d-%d: %w", *next, target, err)
	}
	if err := s.state.Save(ctx, target); err != nil {
		return 0, fmt.Errorf("save last synced block: %w", err)
	}
	s.metrics.SetLastSynced(target)

	synced := target - *next + 1
	*next = target + 1
	return synced, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
