package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cropCircle/internal/chain"
	"cropCircle/internal/indexer"
	"cropCircle/internal/notify"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay CropCircle contract logs as notifications",
		RunE:  runSync,
	}
	cmd.Flags().Uint64("to-block", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	cmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path, empty disables")
	cmd.Flags().Bool("follow", false, "keep polling for new blocks")
	cmd.Flags().Duration("poll-interval", 5*time.Second, "poll interval with --follow")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	address, err := chain.ParseAddress(cfg.Contract)
	if err != nil {
		return fmt.Errorf("contract: %w", err)
	}
	follow, _ := cmd.Flags().GetBool("follow")
	poll, _ := cmd.Flags().GetDuration("poll-interval")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	// Only the publishing sinks are needed here, not a game backend.
	a := &app{cfg: cfg, logger: logger, hub: notify.NewHub()}
	defer a.close()
	sinks, err := a.buildNotifier()
	if err != nil {
		return err
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Contract:          address,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.Checkpoint != "",
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		Follow:            follow,
		PollInterval:      poll,
	}, chainClient, sinks, logger)

	logger.Info("sync start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", address.Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.Bool("follow", follow),
	)

	err = runner.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
