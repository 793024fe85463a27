package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("load .env: " + err.Error() + "\n")
	}

	root := &cobra.Command{
		Use:          "cropcircle",
		Short:        "CropCircle meme contest engine",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("backend", "memory", "game backend (memory, file, postgres, redis, chain)")
	flags.String("owner", "", "owner address allowed to create events and grant tickets")
	flags.String("state-file", "./data/state.json", "state file for the file backend")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.String("lock", "none", "distributed lock (none, etcd, redis)")
	flags.StringSlice("etcd-endpoints", nil, "etcd endpoints (comma-separated)")
	flags.Duration("etcd-dial-timeout", 5*time.Second, "etcd dial timeout")
	flags.Duration("lock-ttl", 10*time.Second, "distributed lock ttl")
	flags.StringSlice("lock-redis-addrs", nil, "Redis nodes for the redlock quorum (comma-separated)")
	flags.StringSlice("kafka-brokers", nil, "Kafka brokers (comma-separated)")
	flags.String("kafka-topic", "cropcircle.notifications", "Kafka notification topic")
	flags.String("amqp-url", "", "RabbitMQ URL")
	flags.String("amqp-exchange", "cropcircle", "RabbitMQ topic exchange")
	flags.String("journal", "", "append notifications to this JSONL file")
	flags.String("rpc", "", "EVM RPC URL")
	flags.String("contract", "", "CropCircle contract address")
	flags.String("token-factory", "", "meme token factory address")
	flags.String("private-key", "", "hex private key used to send transactions")
	flags.Uint64("from-block", 0, "first block holding CropCircle logs")
	flags.Int("max-retries", 5, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Int("creator-share", 30, "percent of the winning token supply given to the meme creator")
	flags.String("token-supply", "", "winning token supply in base units (default 1e24)")
	flags.String("ipfs-gateway", "https://gateway.pinata.cloud/ipfs/", "IPFS gateway used for content URLs")

	root.AddCommand(newServeCmd())
	root.AddCommand(newEventCmd())
	root.AddCommand(newUploadCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newWatchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
