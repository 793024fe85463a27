package issuer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Transactor sends a call to a contract and returns its receipt.
type Transactor interface {
	Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error)
}

// Factory issues tokens through a token factory contract and reports the
// address announced in its MemeTokenCreated log.
type Factory struct {
	tx      Transactor
	factory common.Address
	logger  *zap.Logger
}

func NewFactory(tx Transactor, factory common.Address, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{tx: tx, factory: factory, logger: logger}
}

func (f *Factory) Issue(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	data, err := packCreate(req)
	if err != nil {
		return "", err
	}

	receipt, err := f.tx.Transact(ctx, f.factory, data)
	if err != nil {
		return "", fmt.Errorf("create meme token: %w", err)
	}

	token, err := tokenFromReceipt(receipt, f.factory)
	if err != nil {
		return "", err
	}
	f.logger.Info("meme token created",
		zap.String("event_id", req.EventID),
		zap.String("token", token.Hex()),
		zap.String("tx_hash", receipt.TxHash.Hex()),
	)
	return token.Hex(), nil
}

func packCreate(req Request) ([]byte, error) {
	parsed, err := TokenFactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse token factory abi: %w", err)
	}
	if !common.IsHexAddress(req.Creator) {
		return nil, fmt.Errorf("creator %q is not an address", req.Creator)
	}
	voters := make([]common.Address, 0, len(req.Voters))
	for _, v := range req.Voters {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("voter %q is not an address", v)
		}
		voters = append(voters, common.HexToAddress(v))
	}
	data, err := parsed.Pack("createMemeToken",
		common.HexToHash(req.EventID),
		req.Name,
		req.Symbol,
		common.HexToAddress(req.Creator),
		req.CreatorSharePercent,
		req.TotalSupply,
		voters,
	)
	if err != nil {
		return nil, fmt.Errorf("pack createMemeToken: %w", err)
	}
	return data, nil
}

func tokenFromReceipt(receipt *types.Receipt, factory common.Address) (common.Address, error) {
	parsed, err := TokenFactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse token factory abi: %w", err)
	}
	topic := parsed.Events["MemeTokenCreated"].ID
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != factory || len(lg.Topics) < 3 {
			continue
		}
		if lg.Topics[0] == topic {
			return common.BytesToAddress(lg.Topics[2].Bytes()), nil
		}
	}
	return common.Address{}, fmt.Errorf("MemeTokenCreated log not found in tx %s", receipt.TxHash.Hex())
}
