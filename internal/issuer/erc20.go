package issuer

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

// Some older tokens return bytes32 for name and symbol.
const erc20Bytes32ABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI         abi.ABI
	erc20ABIOnce     sync.Once
	erc20ABIErr      error
	erc20Bytes32ABI  abi.ABI
	erc20Bytes32Once sync.Once
	erc20Bytes32Err  error
)

func erc20Instance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

func erc20Bytes32Instance() (abi.ABI, error) {
	erc20Bytes32Once.Do(func() {
		erc20Bytes32ABI, erc20Bytes32Err = abi.JSON(strings.NewReader(erc20Bytes32ABIJSON))
	})
	return erc20Bytes32ABI, erc20Bytes32Err
}

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenInfo describes an issued winner token as seen on chain.
type TokenInfo struct {
	Address     string            `json:"address"`
	Name        string            `json:"name"`
	Symbol      string            `json:"symbol"`
	Decimals    uint8             `json:"decimals"`
	TotalSupply string            `json:"total_supply"`
	Balances    map[string]string `json:"balances,omitempty"`
}

// TokenCache keeps immutable token fields by address.
type TokenCache struct {
	mu   sync.RWMutex
	data map[common.Address]TokenInfo
}

func NewTokenCache() *TokenCache {
	return &TokenCache{data: make(map[common.Address]TokenInfo)}
}

func (c *TokenCache) Get(address common.Address) (TokenInfo, bool) {
	c.mu.RLock()
	info, ok := c.data[address]
	c.mu.RUnlock()
	return info, ok
}

func (c *TokenCache) Set(address common.Address, info TokenInfo) {
	c.mu.Lock()
	c.data[address] = info
	c.mu.Unlock()
}

// FetchTokenInfo reads ERC20 metadata for token and the balances of holders.
// Name and symbol failures are logged and left empty; a token without
// decimals is rejected.
func FetchTokenInfo(ctx context.Context, caller Caller, token common.Address, holders []string, cache *TokenCache, logger *zap.Logger) (TokenInfo, error) {
	if caller == nil {
		return TokenInfo{}, fmt.Errorf("chain caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := erc20Instance()
	if err != nil {
		return TokenInfo{}, fmt.Errorf("parse erc20 abi: %w", err)
	}

	call := func(parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
		data, err := parsed.Pack(method, args...)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("unpack %s: empty result", method)
		}
		return values, nil
	}

	info, cached := TokenInfo{}, false
	if cache != nil {
		info, cached = cache.Get(token)
	}
	if !cached {
		info = TokenInfo{Address: token.Hex()}
		values, err := call(parsed, "decimals")
		if err != nil {
			return TokenInfo{}, err
		}
		decimals, ok := values[0].(uint8)
		if !ok {
			return TokenInfo{}, fmt.Errorf("decimals: unsupported type %T", values[0])
		}
		info.Decimals = decimals
		info.Symbol = textField(call, parsed, "symbol", token, logger)
		info.Name = textField(call, parsed, "name", token, logger)
		if cache != nil {
			cache.Set(token, info)
		}
	}

	values, err := call(parsed, "totalSupply")
	if err != nil {
		return TokenInfo{}, err
	}
	if supply, ok := values[0].(*big.Int); ok {
		info.TotalSupply = supply.String()
	}

	if len(holders) > 0 {
		info.Balances = make(map[string]string, len(holders))
		for _, holder := range holders {
			if !common.IsHexAddress(holder) {
				continue
			}
			values, err := call(parsed, "balanceOf", common.HexToAddress(holder))
			if err != nil {
				return TokenInfo{}, err
			}
			if amount, ok := values[0].(*big.Int); ok {
				info.Balances[strings.ToLower(holder)] = amount.String()
			}
		}
	}
	return info, nil
}

type callFunc func(parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error)

func textField(call callFunc, parsed abi.ABI, method string, token common.Address, logger *zap.Logger) string {
	if values, err := call(parsed, method); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	fallback, err := erc20Bytes32Instance()
	if err != nil {
		return ""
	}
	values, err := call(fallback, method)
	if err != nil {
		logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
		return ""
	}
	if raw, ok := values[0].([32]byte); ok {
		return string(bytes.TrimRight(raw[:], "\x00"))
	}
	return ""
}
