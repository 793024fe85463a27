package issuer

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const tokenFactoryABIJSON = `[
  {
    "inputs": [
      {"internalType": "bytes32", "name": "eventId", "type": "bytes32"},
      {"internalType": "string", "name": "name", "type": "string"},
      {"internalType": "string", "name": "symbol", "type": "string"},
      {"internalType": "address", "name": "creator", "type": "address"},
      {"internalType": "uint8", "name": "creatorSharePercent", "type": "uint8"},
      {"internalType": "uint256", "name": "totalSupply", "type": "uint256"},
      {"internalType": "address[]", "name": "voters", "type": "address[]"}
    ],
    "name": "createMemeToken",
    "outputs": [{"internalType": "address", "name": "token", "type": "address"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "eventId", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "token", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "creator", "type": "address"}
    ],
    "name": "MemeTokenCreated",
    "type": "event"
  }
]`

var (
	tokenFactoryABI     abi.ABI
	tokenFactoryABIOnce sync.Once
	tokenFactoryABIErr  error
)

// TokenFactoryABI returns the parsed token factory ABI.
func TokenFactoryABI() (abi.ABI, error) {
	tokenFactoryABIOnce.Do(func() {
		tokenFactoryABI, tokenFactoryABIErr = abi.JSON(strings.NewReader(tokenFactoryABIJSON))
	})
	return tokenFactoryABI, tokenFactoryABIErr
}
