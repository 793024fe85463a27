package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cropCircle/internal/chain"
	"cropCircle/internal/config"
	"cropCircle/internal/contract"
	"cropCircle/internal/game"
	"cropCircle/internal/issuer"
	"cropCircle/internal/lock"
	"cropCircle/internal/notify"
	"cropCircle/internal/store"
	"cropCircle/internal/store/file"
	"cropCircle/internal/store/memory"
	"cropCircle/internal/store/postgres"
	redisstore "cropCircle/internal/store/redis"
)

const backendChain = "chain"

// app holds everything a command needs. close releases it in reverse order.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	svc     game.Service
	hub     *notify.Hub
	chain   *chain.Client
	signer  *chain.Signer
	closers []func() error
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// defaultCaller is the identity CLI commands act as.
func (a *app) defaultCaller() string {
	if a.signer != nil {
		return strings.ToLower(a.signer.Address().Hex())
	}
	return a.cfg.Owner
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, hub: notify.NewHub()}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	notifier, err := a.buildNotifier()
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL != "" {
		client, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		a.chain = client
		a.onClose(func() error { client.Close(); return nil })

		if cfg.PrivateKey != "" {
			signer, err := chain.NewSigner(client, cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			a.signer = signer
		}
	}

	if cfg.Backend == backendChain {
		a.svc, err = a.buildChainGame(ctx, notifier)
	} else {
		a.svc, err = a.buildEngine(ctx, notifier)
	}
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

func (a *app) buildNotifier() (notify.Notifier, error) {
	cfg := a.cfg
	sinks := notify.Multi{a.hub}
	if cfg.Journal != "" {
		sinks = append(sinks, notify.NewJournal(cfg.Journal))
	}
	if len(cfg.KafkaBrokers) > 0 {
		k, err := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		a.onClose(k.Close)
		sinks = append(sinks, k)
	}
	if cfg.AMQPURL != "" {
		p, err := notify.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		a.onClose(p.Close)
		sinks = append(sinks, p)
	}
	return sinks, nil
}

func (a *app) buildStore(ctx context.Context) (store.Store, error) {
	cfg := a.cfg
	kind, err := store.ParseKind(cfg.Backend)
	if err != nil {
		return nil, err
	}

	var st store.Store
	switch kind {
	case store.KindMemory:
		st = memory.New()
	case store.KindFile:
		st, err = file.Open(cfg.StateFile)
	case store.KindPostgres:
		var pg *postgres.Store
		pg, err = postgres.NewStore(ctx, cfg.PgDSN)
		if err == nil {
			if err = pg.Migrate(ctx); err != nil {
				pg.Close()
			}
		}
		st = pg
	case store.KindRedis:
		st, err = redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Logger:   a.logger,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", kind, err)
	}
	a.onClose(st.Close)
	return st, nil
}

func (a *app) buildLocker(ctx context.Context) (lock.Locker, error) {
	cfg := a.cfg
	keyed := lock.NewKeyed()
	switch cfg.Lock {
	case "", "none":
		return keyed, nil
	case "etcd":
		l, err := lock.NewEtcd(lock.EtcdOptions{
			Endpoints:   cfg.EtcdEndpoints,
			DialTimeout: cfg.EtcdDialTimeout,
			TTL:         cfg.LockTTL,
			Logger:      a.logger,
		})
		if err != nil {
			return nil, err
		}
		a.onClose(l.Close)
		return lock.Chain{keyed, l}, nil
	case "redis":
		l, err := lock.NewRedis(ctx, lock.RedisOptions{
			Addrs:    cfg.LockRedisAddrs,
			Password: cfg.RedisPassword,
			TTL:      cfg.LockTTL,
			Logger:   a.logger,
		})
		if err != nil {
			return nil, err
		}
		a.onClose(l.Close)
		return lock.Chain{keyed, l}, nil
	default:
		return nil, fmt.Errorf("unknown lock: %q", cfg.Lock)
	}
}

func (a *app) buildIssuer() (issuer.Issuer, error) {
	cfg := a.cfg
	var next issuer.Issuer = issuer.NewLocal()
	if cfg.TokenFactory != "" {
		factory, err := chain.ParseAddress(cfg.TokenFactory)
		if err != nil {
			return nil, fmt.Errorf("token-factory: %w", err)
		}
		if a.signer == nil {
			return nil, fmt.Errorf("token-factory requires rpc and private-key")
		}
		next = issuer.NewFactory(a.signer, factory, a.logger)
	}
	return issuer.WithRetry(next, cfg.MaxRetries, cfg.RetryBackoff, a.logger), nil
}

func (a *app) buildEngine(ctx context.Context, notifier notify.Notifier) (*game.Engine, error) {
	st, err := a.buildStore(ctx)
	if err != nil {
		return nil, err
	}
	locker, err := a.buildLocker(ctx)
	if err != nil {
		return nil, err
	}
	iss, err := a.buildIssuer()
	if err != nil {
		return nil, err
	}

	opts := game.Options{
		Owner:        a.cfg.Owner,
		Notifier:     notifier,
		Issuer:       iss,
		Locker:       locker,
		Logger:       a.logger,
		CreatorShare: a.cfg.CreatorShare,
	}
	if a.cfg.TokenSupply != "" {
		supply, ok := new(big.Int).SetString(a.cfg.TokenSupply, 10)
		if !ok || supply.Sign() <= 0 {
			return nil, fmt.Errorf("invalid token-supply: %q", a.cfg.TokenSupply)
		}
		opts.TokenSupply = supply
	}

	a.logger.Info("local engine ready", zap.String("backend", a.cfg.Backend), zap.String("lock", a.cfg.Lock))
	return game.NewEngine(st, opts), nil
}

func (a *app) buildChainGame(ctx context.Context, notifier notify.Notifier) (*contract.Game, error) {
	if a.chain == nil {
		return nil, fmt.Errorf("chain backend requires rpc")
	}
	address, err := chain.ParseAddress(a.cfg.Contract)
	if err != nil {
		return nil, fmt.Errorf("contract: %w", err)
	}
	chainID, err := a.chain.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	var tx contract.Transactor
	if a.signer != nil {
		tx = a.signer
	}
	g, err := contract.NewGame(a.chain, tx, address, contract.Options{
		FromBlock: a.cfg.FromBlock,
		ChainID:   chainID.Uint64(),
		Notifier:  notifier,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("chain backend ready", zap.String("contract", address.Hex()), zap.Uint64("chain_id", chainID.Uint64()), zap.Bool("signer", a.signer != nil))
	return g, nil
}
