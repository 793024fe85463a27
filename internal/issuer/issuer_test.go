package issuer

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	creator = "0x00000000000000000000000000000000000000c0"
	voterA  = "0x00000000000000000000000000000000000000a1"
	voterB  = "0x00000000000000000000000000000000000000b2"
	eventID = "0x1111111111111111111111111111111111111111111111111111111111111111"
)

func sampleRequest() Request {
	return Request{
		EventID:             eventID,
		Name:                "Doge Moon",
		Symbol:              Symbol("Doge Moon"),
		Creator:             creator,
		CreatorSharePercent: 30,
		TotalSupply:         big.NewInt(1001),
		Voters:              []string{voterA, voterB, voterA, creator},
	}
}

func TestAllocationsSplitSupply(t *testing.T) {
	allocs := sampleRequest().Allocations()
	if len(allocs) != 3 {
		t.Fatalf("expected creator and two voters, got %d", len(allocs))
	}
	// 30% of 1001 = 300, pool 701 / 2 = 350 rem 1.
	if allocs[0].Holder != creator || allocs[0].Amount.Int64() != 301 {
		t.Fatalf("creator allocation mismatch: %+v", allocs[0])
	}
	total := new(big.Int)
	for _, a := range allocs {
		total.Add(total, a.Amount)
	}
	if total.Int64() != 1001 {
		t.Fatalf("allocations must sum to supply, got %s", total)
	}
}

func TestAllocationsWithoutVoters(t *testing.T) {
	req := sampleRequest()
	req.Voters = nil
	allocs := req.Allocations()
	if len(allocs) != 1 || allocs[0].Amount.Int64() != 1001 {
		t.Fatalf("creator should receive everything: %+v", allocs)
	}
}

func TestSymbol(t *testing.T) {
	cases := map[string]string{
		"Doge Moon":     "DOGEMO",
		"pepe":          "PEPE",
		"!!!":           "MEME",
		"cat-2024 meme": "CAT202",
	}
	for in, want := range cases {
		if got := Symbol(in); got != want {
			t.Fatalf("Symbol(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestLocalIsIdempotent(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()
	first, err := l.Issue(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := l.Issue(ctx, sampleRequest())
	if err != nil {
		t.Fatalf("issue again: %v", err)
	}
	if first != second || !common.IsHexAddress(first) {
		t.Fatalf("expected stable address, got %s and %s", first, second)
	}
	if _, ok := l.Holdings(first); !ok {
		t.Fatalf("holdings not recorded")
	}
}

func TestValidate(t *testing.T) {
	req := sampleRequest()
	req.CreatorSharePercent = 101
	if err := req.Validate(); err == nil {
		t.Fatalf("expected share error")
	}
	req = sampleRequest()
	req.TotalSupply = big.NewInt(0)
	if err := req.Validate(); err == nil {
		t.Fatalf("expected supply error")
	}
}

type flaky struct {
	failures int
	calls    int
}

func (f *flaky) Issue(context.Context, Request) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("rpc unavailable")
	}
	return "0xtoken", nil
}

func TestWithRetry(t *testing.T) {
	next := &flaky{failures: 2}
	ref, err := WithRetry(next, 3, time.Millisecond, nil).Issue(context.Background(), sampleRequest())
	if err != nil || ref != "0xtoken" {
		t.Fatalf("unexpected result: %q %v", ref, err)
	}
	if next.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", next.calls)
	}
}

type fakeTransactor struct {
	to      common.Address
	data    []byte
	receipt *types.Receipt
}

func (f *fakeTransactor) Transact(_ context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	f.to = to
	f.data = data
	return f.receipt, nil
}

func TestFactoryReadsTokenFromLog(t *testing.T) {
	parsed, err := TokenFactoryABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	factory := common.HexToAddress("0x00000000000000000000000000000000000000f0")
	token := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	receipt := &types.Receipt{Logs: []*types.Log{{
		Address: factory,
		Topics: []common.Hash{
			parsed.Events["MemeTokenCreated"].ID,
			common.HexToHash(eventID),
			common.BytesToHash(token.Bytes()),
			common.BytesToHash(common.HexToAddress(creator).Bytes()),
		},
	}}}
	tx := &fakeTransactor{receipt: receipt}

	ref, err := NewFactory(tx, factory, nil).Issue(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ref != token.Hex() {
		t.Fatalf("token mismatch: %s", ref)
	}
	if tx.to != factory {
		t.Fatalf("sent to %s", tx.to.Hex())
	}
	method, err := parsed.MethodById(tx.data[:4])
	if err != nil || method.Name != "createMemeToken" {
		t.Fatalf("unexpected method: %v %v", method, err)
	}
}

func TestFactoryRejectsMissingLog(t *testing.T) {
	factory := common.HexToAddress("0x00000000000000000000000000000000000000f0")
	tx := &fakeTransactor{receipt: &types.Receipt{}}
	if _, err := NewFactory(tx, factory, nil).Issue(context.Background(), sampleRequest()); err == nil {
		t.Fatalf("expected missing log error")
	}
}
