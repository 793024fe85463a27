package chain

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type dataError struct {
	data string
}

func (e dataError) Error() string          { return "execution reverted" }
func (e dataError) ErrorData() interface{} { return e.data }

func revertData(t *testing.T, reason string) string {
	t.Helper()
	strType, err := abi.NewType("string", "", nil)
	if err != nil {
		t.Fatalf("new type: %v", err)
	}
	packed, err := abi.Arguments{{Type: strType}}.Pack(reason)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return hexutil.Encode(append(selector, packed...))
}

func TestDecodeRevertFromErrorData(t *testing.T) {
	err := DecodeRevert(dataError{data: revertData(t, "Already voted")})
	var revert *RevertError
	if !errors.As(err, &revert) {
		t.Fatalf("expected revert error, got %v", err)
	}
	if revert.Reason != "Already voted" {
		t.Fatalf("reason mismatch: %q", revert.Reason)
	}
}

func TestDecodeRevertFromMessage(t *testing.T) {
	err := DecodeRevert(errors.New("execution reverted: Insufficient CROP"))
	var revert *RevertError
	if !errors.As(err, &revert) || revert.Reason != "Insufficient CROP" {
		t.Fatalf("unexpected decode: %v", err)
	}
}

func TestDecodeRevertPassesOtherErrors(t *testing.T) {
	plain := errors.New("connection refused")
	if got := DecodeRevert(plain); got != plain {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestNewSignerAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	hexKey := hexutil.Encode(crypto.FromECDSA(key))
	signer, err := NewSigner(nil, hexKey)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if signer.Address() != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("address mismatch")
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(" 0x1111111111111111111111111111111111111111 ")
	if err != nil || addr != common.HexToAddress("0x1111111111111111111111111111111111111111") {
		t.Fatalf("parse: %v %v", addr, err)
	}
	if _, err := ParseAddress("0x123"); err == nil {
		t.Fatalf("expected error for short address")
	}
	if addr, err := ParseOptionalAddress(""); err != nil || addr != (common.Address{}) {
		t.Fatalf("optional empty: %v %v", addr, err)
	}
}
