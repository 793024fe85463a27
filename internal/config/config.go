package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key (log-level -> CROPCIRCLE_LOG_LEVEL).
const EnvPrefix = "CROPCIRCLE"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel string
	Backend  string
	Owner    string
	Listen   string

	StateFile     string
	PgDSN         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Lock            string
	EtcdEndpoints   []string
	EtcdDialTimeout time.Duration
	LockTTL         time.Duration
	LockRedisAddrs  []string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string
	AMQPURL      string
	AMQPExchange string
	Journal      string

	PinataJWT      string
	PinataEndpoint string
	IPFSGateway    string

	RPCURL       string
	Contract     string
	TokenFactory string
	PrivateKey   string
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	Checkpoint   string
	MaxRetries   int
	RetryBackoff time.Duration

	CreatorShare uint8
	TokenSupply  string

	RequireSignature bool
	SignatureMaxAge  time.Duration
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("backend", "memory")
	v.SetDefault("listen", ":8080")
	v.SetDefault("state-file", "./data/state.json")
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("lock", "none")
	v.SetDefault("etcd-dial-timeout", 5*time.Second)
	v.SetDefault("lock-ttl", 10*time.Second)
	v.SetDefault("kafka-topic", "cropcircle.notifications")
	v.SetDefault("kafka-group", "cropcircle-watch")
	v.SetDefault("amqp-exchange", "cropcircle")
	v.SetDefault("ipfs-gateway", "https://gateway.pinata.cloud/ipfs/")
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("creator-share", 30)
	v.SetDefault("signature-max-age", 5*time.Minute)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	share := v.GetInt("creator-share")
	if share < 0 || share > 100 {
		return Config{}, fmt.Errorf("creator-share must be within 0..100, got %d", share)
	}

	cfg := Config{
		LogLevel: v.GetString("log-level"),
		Backend:  strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		Owner:    strings.ToLower(strings.TrimSpace(v.GetString("owner"))),
		Listen:   v.GetString("listen"),

		StateFile:     v.GetString("state-file"),
		PgDSN:         v.GetString("pg-dsn"),
		RedisAddr:     v.GetString("redis-addr"),
		RedisPassword: v.GetString("redis-password"),
		RedisDB:       v.GetInt("redis-db"),

		Lock:            strings.ToLower(strings.TrimSpace(v.GetString("lock"))),
		EtcdEndpoints:   getStringSlice(v, "etcd-endpoints"),
		EtcdDialTimeout: v.GetDuration("etcd-dial-timeout"),
		LockTTL:         v.GetDuration("lock-ttl"),
		LockRedisAddrs:  getStringSlice(v, "lock-redis-addrs"),

		KafkaBrokers: getStringSlice(v, "kafka-brokers"),
		KafkaTopic:   v.GetString("kafka-topic"),
		KafkaGroup:   v.GetString("kafka-group"),
		AMQPURL:      v.GetString("amqp-url"),
		AMQPExchange: v.GetString("amqp-exchange"),
		Journal:      v.GetString("journal"),

		PinataJWT:      v.GetString("pinata-jwt"),
		PinataEndpoint: v.GetString("pinata-endpoint"),
		IPFSGateway:    v.GetString("ipfs-gateway"),

		RPCURL:       v.GetString("rpc"),
		Contract:     v.GetString("contract"),
		TokenFactory: v.GetString("token-factory"),
		PrivateKey:   v.GetString("private-key"),
		FromBlock:    v.GetUint64("from-block"),
		ToBlock:      v.GetUint64("to-block"),
		BatchSize:    v.GetUint64("batch-size"),
		Checkpoint:   v.GetString("checkpoint"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),

		CreatorShare: uint8(share),
		TokenSupply:  v.GetString("token-supply"),

		RequireSignature: v.GetBool("require-signature"),
		SignatureMaxAge:  v.GetDuration("signature-max-age"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
