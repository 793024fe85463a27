package api

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"
)

const (
	HeaderWalletAddress   = "X-Wallet-Address"
	HeaderWalletSignature = "X-Wallet-Signature"
	HeaderWalletTimestamp = "X-Wallet-Timestamp"
)

type walletKey struct{}

// WithWallet returns a context carrying the caller address.
func WithWallet(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, walletKey{}, strings.ToLower(addr))
}

// WalletFrom returns the caller address, or "" for anonymous requests.
func WalletFrom(ctx context.Context) string {
	addr, _ := ctx.Value(walletKey{}).(string)
	return addr
}

// AuthMessage is the text a wallet signs to authenticate.
func AuthMessage(addr string, timestamp int64) string {
	return fmt.Sprintf("CropCircle auth\nAddress: %s\nTimestamp: %d", strings.ToLower(addr), timestamp)
}

// AuthConfig controls wallet identification.
type AuthConfig struct {
	RequireSignature bool
	MaxAge           time.Duration
	Now              func() time.Time
}

// Auth reads the caller identity from the wallet headers. Requests without
// an address pass through anonymously.
func Auth(cfg AuthConfig) echo.MiddlewareFunc {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Minute
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			addr := strings.TrimSpace(req.Header.Get(HeaderWalletAddress))
			if addr == "" {
				return next(c)
			}
			if !common.IsHexAddress(addr) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid wallet address")
			}
			if cfg.RequireSignature {
				if err := verifySignature(cfg, addr, req.Header.Get(HeaderWalletTimestamp), req.Header.Get(HeaderWalletSignature)); err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
				}
			}
			c.SetRequest(req.WithContext(WithWallet(req.Context(), addr)))
			return next(c)
		}
	}
}

func verifySignature(cfg AuthConfig, addr, rawTimestamp, rawSignature string) error {
	ts, err := strconv.ParseInt(strings.TrimSpace(rawTimestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid wallet timestamp")
	}
	age := cfg.Now().Sub(time.Unix(ts, 0))
	if age < -cfg.MaxAge || age > cfg.MaxAge {
		return fmt.Errorf("wallet signature expired")
	}

	sig, err := hexutil.Decode(strings.TrimSpace(rawSignature))
	if err != nil || len(sig) != crypto.SignatureLength {
		return fmt.Errorf("invalid wallet signature")
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(AuthMessage(addr, ts)))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("recover signer: %w", err)
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(addr) {
		return fmt.Errorf("signature does not match wallet address")
	}
	return nil
}

// SignAuth produces the wallet headers for key at now.
func SignAuth(key *ecdsa.PrivateKey, now time.Time) (addr, timestamp, signature string, err error) {
	addr = strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	ts := now.Unix()
	sig, err := crypto.Sign(accounts.TextHash([]byte(AuthMessage(addr, ts))), key)
	if err != nil {
		return "", "", "", fmt.Errorf("sign auth message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return addr, strconv.FormatInt(ts, 10), hexutil.Encode(sig), nil
}
