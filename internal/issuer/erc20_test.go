package issuer

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type fakeToken struct {
	calls int
}

func (f *fakeToken) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	parsed, err := erc20Instance()
	if err != nil {
		return nil, err
	}
	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "decimals":
		return method.Outputs.Pack(uint8(18))
	case "symbol", "name":
		return method.Outputs.Pack("MOON")
	case "totalSupply":
		return method.Outputs.Pack(big.NewInt(1000))
	case "balanceOf":
		return method.Outputs.Pack(big.NewInt(300))
	}
	return nil, fmt.Errorf("unexpected method %s", method.Name)
}

func TestFetchTokenInfo(t *testing.T) {
	token := common.HexToAddress("0x4444444444444444444444444444444444444444")
	holder := "0x000000000000000000000000000000000000000A"
	caller := &fakeToken{}
	cache := NewTokenCache()

	info, err := FetchTokenInfo(context.Background(), caller, token, []string{holder, "bogus"}, cache, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if info.Symbol != "MOON" || info.Name != "MOON" || info.Decimals != 18 || info.TotalSupply != "1000" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Balances["0x000000000000000000000000000000000000000a"] != "300" || len(info.Balances) != 1 {
		t.Fatalf("unexpected balances: %+v", info.Balances)
	}

	before := caller.calls
	if _, err := FetchTokenInfo(context.Background(), caller, token, nil, cache, nil); err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if caller.calls-before != 1 {
		t.Fatalf("cached fetch should only read totalSupply, made %d calls", caller.calls-before)
	}
}

func TestFetchTokenInfoNilCaller(t *testing.T) {
	if _, err := FetchTokenInfo(context.Background(), nil, common.Address{}, nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil caller")
	}
}
