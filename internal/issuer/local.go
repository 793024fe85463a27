package issuer

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Local issues tokens without a chain. The reference is an address derived
// from the event id and the winning meme, so re-issuing is idempotent.
type Local struct {
	mu     sync.Mutex
	issued map[string][]Allocation
}

func NewLocal() *Local {
	return &Local{issued: make(map[string][]Allocation)}
}

func (l *Local) Issue(_ context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	ref := LocalAddress(req).Hex()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.issued[ref]; !ok {
		l.issued[ref] = req.Allocations()
	}
	return ref, nil
}

// Holdings returns the allocations recorded for ref.
func (l *Local) Holdings(ref string) ([]Allocation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out, ok := l.issued[ref]
	return out, ok
}

// LocalAddress is keccak256(eventID ‖ name ‖ symbol ‖ creator)[12:].
func LocalAddress(req Request) common.Address {
	hash := crypto.Keccak256(
		[]byte(req.EventID),
		[]byte(req.Name),
		[]byte(req.Symbol),
		[]byte(req.Creator),
	)
	return common.BytesToAddress(hash[12:])
}
