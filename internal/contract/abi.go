package contract

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const cropCircleABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "eventId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "endTime", "type": "uint256"},
      {"indexed": false, "internalType": "string", "name": "eventUri", "type": "string"}
    ],
    "name": "EventCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "eventId", "type": "bytes32"},
      {"indexed": true, "internalType": "uint256", "name": "memeId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "creator", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "name", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "imageHash", "type": "string"}
    ],
    "name": "MemeSubmitted",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "eventId", "type": "bytes32"},
      {"indexed": true, "internalType": "uint256", "name": "memeId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "voter", "type": "address"},
      {"indexed": false, "internalType": "bool", "name": "isUpvote", "type": "bool"}
    ],
    "name": "VoteCast",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "eventId", "type": "bytes32"},
      {"indexed": true, "internalType": "uint256", "name": "winningMemeId", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "tokenAddress", "type": "address"}
    ],
    "name": "EventEnded",
    "type": "event"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "_duration", "type": "uint256"},
      {"internalType": "string", "name": "_eventUri", "type": "string"}
    ],
    "name": "createEvent",
    "outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "_eventId", "type": "bytes32"},
      {"internalType": "string", "name": "_name", "type": "string"},
      {"internalType": "string", "name": "_imageHash", "type": "string"},
      {"internalType": "string", "name": "_description", "type": "string"}
    ],
    "name": "submitMeme",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "_eventId", "type": "bytes32"},
      {"internalType": "uint256", "name": "_memeId", "type": "uint256"},
      {"internalType": "bool", "name": "_isUpvote", "type": "bool"}
    ],
    "name": "vote",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "_eventId", "type": "bytes32"}],
    "name": "endEvent",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "_eventId", "type": "bytes32"}],
    "name": "getEventDetails",
    "outputs": [
      {
        "components": [
          {"internalType": "address", "name": "creator", "type": "address"},
          {"internalType": "uint256", "name": "startTime", "type": "uint256"},
          {"internalType": "uint256", "name": "endTime", "type": "uint256"},
          {"internalType": "string", "name": "eventUri", "type": "string"},
          {"internalType": "bool", "name": "active", "type": "bool"},
          {"internalType": "uint256", "name": "winningMemeId", "type": "uint256"},
          {"internalType": "address", "name": "tokenAddress", "type": "address"}
        ],
        "internalType": "struct CropCircle.Event",
        "name": "",
        "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "_eventId", "type": "bytes32"},
      {"internalType": "uint256", "name": "_memeId", "type": "uint256"}
    ],
    "name": "getMemeDetails",
    "outputs": [
      {
        "components": [
          {"internalType": "string", "name": "name", "type": "string"},
          {"internalType": "string", "name": "description", "type": "string"},
          {"internalType": "string", "name": "imageHash", "type": "string"},
          {"internalType": "address", "name": "creator", "type": "address"},
          {"internalType": "uint256", "name": "timestamp", "type": "uint256"},
          {"internalType": "uint256", "name": "upvotes", "type": "uint256"},
          {"internalType": "uint256", "name": "downvotes", "type": "uint256"},
          {"internalType": "bool", "name": "exists", "type": "bool"}
        ],
        "internalType": "struct CropCircle.Meme",
        "name": "",
        "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "_eventId", "type": "bytes32"},
      {"internalType": "bool", "name": "_sortByUpvotes", "type": "bool"}
    ],
    "name": "getMemesSorted",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "_user", "type": "address"},
      {"internalType": "bytes32", "name": "_eventId", "type": "bytes32"}
    ],
    "name": "userCropBalance",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "owner",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	cropCircleABI     abi.ABI
	cropCircleABIOnce sync.Once
	cropCircleABIErr  error
)

// CropCircleABI returns the parsed CropCircle contract ABI.
func CropCircleABI() (abi.ABI, error) {
	cropCircleABIOnce.Do(func() {
		cropCircleABI, cropCircleABIErr = abi.JSON(strings.NewReader(cropCircleABIJSON))
	})
	return cropCircleABI, cropCircleABIErr
}
