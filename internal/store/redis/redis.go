package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"cropCircle/internal/store"
)

const defaultMaxAttempts = 16

// Options configures the Redis backend.
type Options struct {
	Addr        string
	Password    string
	DB          int
	Namespace   string
	Timeout     time.Duration
	MaxAttempts int
	Logger      *zap.Logger
}

// Store keeps game state in Redis using the shared key layout. Updates are
// optimistic: every key read inside a transaction is WATCHed and the commit
// is retried when another writer touched one of them.
type Store struct {
	client      *redis.Client
	namespace   string
	maxAttempts int
	logger      *zap.Logger
}

func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &Store{
		client:      client,
		namespace:   opts.Namespace,
		maxAttempts: attempts,
		logger:      logger,
	}
}

// Key prefixes a logical key with the configured namespace.
func (s *Store) Key(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

type cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// kv reads through a client or a WATCHing transaction.
type kv struct {
	s     *Store
	c     cmdable
	watch func(ctx context.Context, keys ...string) error
}

func (k kv) Get(ctx context.Context, key string) (string, bool, error) {
	full := k.s.Key(key)
	if k.watch != nil {
		if err := k.watch(ctx, full); err != nil {
			return "", false, err
		}
	}
	val, err := k.c.Get(ctx, full).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (k kv) Keys(ctx context.Context, prefix string) ([]string, error) {
	match := escapeGlob(k.s.Key(prefix)) + "*"
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := k.c.Scan(ctx, cursor, match, 256).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
		}
		for _, full := range batch {
			keys = append(keys, strings.TrimPrefix(full, k.s.Key("")))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return dedupe(keys), nil
}

func (s *Store) View(ctx context.Context, fn func(store.Reader) error) error {
	return fn(store.NewKVReader(kv{s: s, c: s.client}))
}

func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			watch := func(ctx context.Context, keys ...string) error {
				return tx.Watch(ctx, keys...).Err()
			}
			reader := store.NewKVReader(kv{s: s, c: tx, watch: watch})
			staged := store.NewStaged(reader, func(ctx context.Context, id string) error {
				return watch(ctx, s.Key(store.EventKey(id)))
			})
			if err := fn(staged); err != nil {
				return err
			}
			if staged.Empty() {
				return nil
			}
			writes, err := staged.Writes(ctx)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for key, val := range writes {
					pipe.Set(ctx, s.Key(key), val, 0)
				}
				return nil
			})
			return err
		})
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("redis transaction conflict, retrying", zap.Int("attempt", attempt))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return err
	}
	return fmt.Errorf("redis update: gave up after %d conflicting attempts", s.maxAttempts)
}

func (s *Store) Close() error {
	return s.client.Close()
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, k := range sorted {
		if i > 0 && k == sorted[i-1] {
			continue
		}
		out = append(out, k)
	}
	return out
}
