package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"cropCircle/internal/contract"
	"cropCircle/internal/notify"
	"cropCircle/internal/retry"
)

// RunConfig holds runtime settings for the contract log sync.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Contract          common.Address
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	// Follow keeps polling for new blocks after catching up.
	Follow       bool
	PollInterval time.Duration
}

// Source is the slice of the chain client the runner reads from.
type Source interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Runner scans CropCircle contract logs in block batches and publishes them
// as notifications.
type Runner struct {
	cfg        RunConfig
	source     Source
	notifier   notify.Notifier
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source Source, notifier notify.Notifier, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		notifier:   notifier,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled, cfg.Contract),
	}
}

// Run executes the sync loop. Without Follow it returns once ToBlock (or the
// head at start) is reached.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("chain source is nil")
	}
	if r.notifier == nil {
		return fmt.Errorf("notifier is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Contract == (common.Address{}) {
		return fmt.Errorf("contract address is required")
	}

	chainID, err := r.source.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	decoder, err := contract.NewDecoder(chainID.Uint64())
	if err != nil {
		return err
	}

	cp, resumed, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	from := StartBlock(r.cfg.FromBlock, cp, resumed)
	if from != r.cfg.FromBlock {
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}

	for {
		var head uint64
		if r.cfg.ToBlock == 0 {
			head, err = r.latestWithRetry(ctx)
			if err != nil {
				return fmt.Errorf("get latest block: %w", err)
			}
		}

		if window, ok := Window(from, head, r.cfg.ToBlock); ok {
			next, err := r.syncRange(ctx, decoder, window)
			if err != nil {
				return err
			}
			from = next
		} else {
			r.logger.Debug("nothing to sync", zap.Uint64("from", from), zap.Uint64("head", head))
		}

		if !r.cfg.Follow || r.cfg.ToBlock != 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.PollInterval):
		}
	}
}

// syncRange processes window and returns the next block to read.
func (r *Runner) syncRange(ctx context.Context, decoder *contract.Decoder, window BlockRange) (uint64, error) {
	ranges, err := Batches(window, r.cfg.BatchSize)
	if err != nil {
		return window.From, err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return blockRange.From, ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, decoder, blockRange.From, blockRange.To)
		if err != nil {
			return blockRange.From, fmt.Errorf("filter logs: %w", err)
		}

		published := 0
		timestamps := make(map[uint64]uint64)
		for _, lg := range logs {
			if r.isDuplicate(lg) {
				continue
			}
			n, err := decoder.Decode(lg)
			if err != nil {
				r.logger.Warn("decode log failed", zap.String("tx_hash", lg.TxHash.Hex()), zap.Uint("log_index", lg.Index), zap.Error(err))
				continue
			}

			ts, ok := timestamps[lg.BlockNumber]
			if !ok {
				ts, err = r.blockTimestampWithRetry(ctx, lg.BlockNumber)
				if err != nil {
					return blockRange.From, fmt.Errorf("block timestamp %d: %w", lg.BlockNumber, err)
				}
				timestamps[lg.BlockNumber] = ts
			}

			if err := r.notifier.Publish(ctx, withBlockTime(n, ts)); err != nil {
				return blockRange.From, fmt.Errorf("publish %s: %w", n.Kind, err)
			}
			published++
		}

		if err := r.checkpoint.Save(blockRange.To); err != nil {
			return blockRange.From, err
		}

		r.logger.Info("batch complete", zap.Int("notifications", published), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return window.To + 1, nil
}

func (r *Runner) latestWithRetry(ctx context.Context) (uint64, error) {
	var latest uint64
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		latest, err = r.source.LatestBlockNumber(ctx)
		if err != nil {
			r.logger.Warn("latest block fetch failed", zap.Error(err))
		}
		return err
	})
	return latest, err
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, decoder *contract.Decoder, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	addresses := []common.Address{r.cfg.Contract}
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, fromBlock, toBlock, addresses, decoder.Topics())
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.source.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
