package lock

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const (
	defaultTTLSeconds = 10
	defaultPoll       = 100 * time.Millisecond
)

// Etcd holds locks as keys bound to a kept-alive lease. Another holder's key
// blocks Acquire until it is deleted or its lease expires.
type Etcd struct {
	kv     clientv3.KV
	lease  clientv3.Lease
	closer func() error
	prefix string
	ttl    int64
	poll   time.Duration
	logger *zap.Logger
}

type EtcdOptions struct {
	Endpoints   []string
	DialTimeout time.Duration
	TTL         time.Duration
	Prefix      string
	Logger      *zap.Logger
}

func NewEtcd(opts EtcdOptions) (*Etcd, error) {
	if len(opts.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints are required")
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   opts.Endpoints,
		DialTimeout: opts.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create etcd client: %w", err)
	}
	e := newEtcd(cli, cli, opts)
	e.closer = cli.Close
	return e, nil
}

func newEtcd(kv clientv3.KV, lease clientv3.Lease, opts EtcdOptions) *Etcd {
	ttl := int64(opts.TTL / time.Second)
	if ttl <= 0 {
		ttl = defaultTTLSeconds
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "/cropcircle/locks/"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Etcd{
		kv:     kv,
		lease:  lease,
		closer: func() error { return nil },
		prefix: prefix,
		ttl:    ttl,
		poll:   defaultPoll,
		logger: logger,
	}
}

// Acquire waits until name is free and claims it. The lease is kept alive
// from the first attempt, so a long wait cannot outlive it.
func (e *Etcd) Acquire(ctx context.Context, name string) (func(), error) {
	key := e.prefix + name

	grant, err := e.lease.Grant(ctx, e.ttl)
	if err != nil {
		return nil, fmt.Errorf("grant lease: %w", err)
	}
	keepCtx, stop := context.WithCancel(context.Background())
	revoke := func() {
		stop()
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := e.lease.Revoke(rctx, grant.ID); err != nil {
			e.logger.Warn("revoke lease failed", zap.String("lock", name), zap.Error(err))
		}
	}

	alive, err := e.lease.KeepAlive(keepCtx, grant.ID)
	if err != nil {
		revoke()
		return nil, fmt.Errorf("keep lease alive: %w", err)
	}
	go func() {
		for range alive {
		}
	}()

	for {
		resp, err := e.kv.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, "", clientv3.WithLease(grant.ID))).
			Commit()
		if err != nil {
			revoke()
			return nil, fmt.Errorf("acquire %s: %w", name, err)
		}
		if resp.Succeeded {
			break
		}
		select {
		case <-ctx.Done():
			revoke()
			return nil, ctx.Err()
		case <-time.After(e.poll):
		}
	}

	return func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := e.kv.Delete(dctx, key); err != nil {
			e.logger.Warn("delete lock key failed", zap.String("lock", name), zap.Error(err))
		}
		revoke()
	}, nil
}

func (e *Etcd) Close() error {
	return e.closer()
}
