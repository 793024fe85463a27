package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// RevertError carries the reason string of a reverted call.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

// Signer sends transactions from a single key.
type Signer struct {
	client *Client
	key    *ecdsa.PrivateKey
	from   common.Address
}

// NewSigner parses a hex private key, with or without 0x prefix.
func NewSigner(client *Client, hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{client: client, key: key, from: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the sending account.
func (s *Signer) Address() common.Address {
	return s.from
}

// Transact signs and sends a dynamic fee transaction and waits for it to be
// mined. Calls that would revert fail before anything is sent.
func (s *Signer) Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	eth := s.client.ethClient

	chainID, err := s.client.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	msg := ethereum.CallMsg{From: s.from, To: &to, Data: data}
	gas, err := eth.EstimateGas(ctx, msg)
	if err != nil {
		return nil, DecodeRevert(err)
	}

	nonce, err := eth.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	tip, err := eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip: %w", err)
	}
	head, err := eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get head: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas * 12 / 10,
		To:        &to,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	if err := eth.SendTransaction(ctx, signed); err != nil {
		return nil, DecodeRevert(err)
	}

	receipt, err := bind.WaitMined(ctx, eth, signed)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("tx %s failed: %w", signed.Hash().Hex(), &RevertError{})
	}
	return receipt, nil
}

// DecodeRevert turns an RPC error that carries revert data into a
// RevertError. Other errors are returned unchanged.
func DecodeRevert(err error) error {
	if err == nil {
		return nil
	}
	var dataErr interface{ ErrorData() interface{} }
	if errors.As(err, &dataErr) {
		if raw, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(raw); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return &RevertError{Reason: reason}
				}
			}
		}
	}
	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted"); idx >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[idx:], "execution reverted"))
		reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
		return &RevertError{Reason: reason}
	}
	return err
}
