package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Redis implements the Redlock algorithm over independent nodes: a lock is
// held once a majority accepted the SET NX within its validity time.
type Redis struct {
	clients []*redis.Client
	ttl     time.Duration
	poll    time.Duration
	prefix  string
	logger  *zap.Logger
}

type RedisOptions struct {
	Addrs    []string
	Password string
	TTL      time.Duration
	Prefix   string
	Logger   *zap.Logger
}

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("redis lock addrs are required")
	}
	clients := make([]*redis.Client, 0, len(opts.Addrs))
	for _, addr := range opts.Addrs {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: opts.Password})
		if err := client.Ping(ctx).Err(); err != nil {
			for _, c := range clients {
				c.Close()
			}
			client.Close()
			return nil, fmt.Errorf("ping redis lock node %s: %w", addr, err)
		}
		clients = append(clients, client)
	}
	return NewRedisWithClients(clients, opts), nil
}

func NewRedisWithClients(clients []*redis.Client, opts RedisOptions) *Redis {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTLSeconds * time.Second
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "cropcircle:lock:"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{clients: clients, ttl: ttl, poll: defaultPoll, prefix: prefix, logger: logger}
}

func quorum(n int) int {
	return n/2 + 1
}

func (r *Redis) Acquire(ctx context.Context, name string) (func(), error) {
	key := r.prefix + name
	token := uuid.NewString()

	for {
		start := time.Now()
		acquired := 0
		for _, client := range r.clients {
			ok, err := client.SetNX(ctx, key, token, r.ttl).Result()
			if err != nil {
				r.logger.Debug("redis lock node failed", zap.String("lock", name), zap.Error(err))
				continue
			}
			if ok {
				acquired++
			}
		}
		if acquired >= quorum(len(r.clients)) && time.Since(start) < r.ttl {
			return func() { r.unlockAll(key, token) }, nil
		}
		r.unlockAll(key, token)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.poll):
		}
	}
}

func (r *Redis) unlockAll(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, client := range r.clients {
		if err := releaseScript.Run(ctx, client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			r.logger.Warn("redis lock release failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (r *Redis) Close() error {
	for _, client := range r.clients {
		if err := client.Close(); err != nil {
			r.logger.Warn("close redis lock client failed", zap.Error(err))
		}
	}
	return nil
}
