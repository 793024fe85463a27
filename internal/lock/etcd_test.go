package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeLease expires its lease after the first wait unless it is kept alive.
type fakeLease struct {
	clientv3.Lease

	mu      sync.Mutex
	alive   bool
	revoked bool
}

func (l *fakeLease) Grant(context.Context, int64) (*clientv3.LeaseGrantResponse, error) {
	return &clientv3.LeaseGrantResponse{ID: 7, TTL: 1}, nil
}

func (l *fakeLease) KeepAlive(ctx context.Context, _ clientv3.LeaseID) (<-chan *clientv3.LeaseKeepAliveResponse, error) {
	l.mu.Lock()
	l.alive = true
	l.mu.Unlock()
	ch := make(chan *clientv3.LeaseKeepAliveResponse)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (l *fakeLease) Revoke(context.Context, clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	l.mu.Lock()
	l.revoked = true
	l.mu.Unlock()
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (l *fakeLease) kept() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alive
}

// fakeKV reports the key as held for the first busy attempts.
type fakeKV struct {
	clientv3.KV

	lease    *fakeLease
	mu       sync.Mutex
	busy     int
	attempts int
	deleted  []string
}

func (kv *fakeKV) Txn(context.Context) clientv3.Txn { return &fakeTxn{kv: kv} }

func (kv *fakeKV) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	kv.mu.Lock()
	kv.deleted = append(kv.deleted, key)
	kv.mu.Unlock()
	return &clientv3.DeleteResponse{}, nil
}

type fakeTxn struct {
	kv *fakeKV
}

func (t *fakeTxn) If(...clientv3.Cmp) clientv3.Txn  { return t }
func (t *fakeTxn) Then(...clientv3.Op) clientv3.Txn { return t }
func (t *fakeTxn) Else(...clientv3.Op) clientv3.Txn { return t }

func (t *fakeTxn) Commit() (*clientv3.TxnResponse, error) {
	kv := t.kv
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.attempts++
	if kv.attempts > 1 && !kv.lease.kept() {
		return nil, errors.New("etcdserver: requested lease not found")
	}
	if kv.busy > 0 {
		kv.busy--
		return &clientv3.TxnResponse{Succeeded: false}, nil
	}
	return &clientv3.TxnResponse{Succeeded: true}, nil
}

func TestEtcdWaitsPastLeaseTTL(t *testing.T) {
	lease := &fakeLease{}
	kv := &fakeKV{lease: lease, busy: 3}
	e := newEtcd(kv, lease, EtcdOptions{Prefix: "/test/"})
	e.poll = time.Millisecond

	release, err := e.Acquire(context.Background(), "event:0xabc")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if kv.attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", kv.attempts)
	}

	release()
	if len(kv.deleted) != 1 || kv.deleted[0] != "/test/event:0xabc" {
		t.Fatalf("unexpected deletes: %v", kv.deleted)
	}
	if !lease.revoked {
		t.Fatalf("lease should be revoked on release")
	}
}

func TestEtcdAcquireHonoursContext(t *testing.T) {
	lease := &fakeLease{}
	kv := &fakeKV{lease: lease, busy: 1 << 30}
	e := newEtcd(kv, lease, EtcdOptions{})
	e.poll = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := e.Acquire(ctx, "busy"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !lease.revoked {
		t.Fatalf("lease should be revoked after giving up")
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
