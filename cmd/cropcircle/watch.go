package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cropCircle/internal/game"
	"cropCircle/internal/model"
	"cropCircle/internal/notify"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print notifications consumed from Kafka as JSON lines",
		RunE:  runWatch,
	}
	cmd.Flags().String("kafka-group", "cropcircle-watch", "Kafka consumer group")
	cmd.Flags().String("event", "", "only print notifications for this event id")
	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("kafka-brokers is required")
	}
	eventFilter, _ := cmd.Flags().GetString("event")
	eventFilter = game.NormalizeID(eventFilter)

	consumer, err := notify.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	logger.Info("watch start", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic), zap.String("group", cfg.KafkaGroup))
	err = consumer.Run(ctx, func(_ context.Context, n model.Notification) error {
		if eventFilter != "" && n.EventID != eventFilter {
			return nil
		}
		return enc.Encode(n)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
