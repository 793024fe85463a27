// Package issuer requests a token for the winning meme of an ended event.
package issuer

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Request describes the token to issue.
type Request struct {
	EventID             string
	Name                string
	Symbol              string
	Creator             string
	CreatorSharePercent uint8
	TotalSupply         *big.Int
	Voters              []string
}

// Allocation is the amount one holder receives.
type Allocation struct {
	Holder string
	Amount *big.Int
}

// Issuer mints a token and returns a reference to it, typically its address.
type Issuer interface {
	Issue(ctx context.Context, req Request) (string, error)
}

// Validate checks the request before anything is minted.
func (r Request) Validate() error {
	if r.EventID == "" || r.Name == "" || r.Creator == "" {
		return fmt.Errorf("event id, name and creator are required")
	}
	if r.CreatorSharePercent > 100 {
		return fmt.Errorf("creator share %d%% exceeds 100%%", r.CreatorSharePercent)
	}
	if r.TotalSupply == nil || r.TotalSupply.Sign() <= 0 {
		return fmt.Errorf("total supply must be positive")
	}
	return nil
}

// Allocations splits the supply: the creator receives its share, voters
// split the rest evenly and the creator keeps any remainder. Without voters
// the creator receives everything.
func (r Request) Allocations() []Allocation {
	supply := new(big.Int).Set(r.TotalSupply)
	voters := dedupe(r.Voters, r.Creator)
	if len(voters) == 0 {
		return []Allocation{{Holder: r.Creator, Amount: supply}}
	}

	creatorAmount := new(big.Int).Mul(supply, big.NewInt(int64(r.CreatorSharePercent)))
	creatorAmount.Quo(creatorAmount, big.NewInt(100))
	pool := new(big.Int).Sub(supply, creatorAmount)

	each, rem := new(big.Int).QuoRem(pool, big.NewInt(int64(len(voters))), new(big.Int))
	creatorAmount.Add(creatorAmount, rem)

	out := make([]Allocation, 0, len(voters)+1)
	out = append(out, Allocation{Holder: r.Creator, Amount: creatorAmount})
	for _, v := range voters {
		out = append(out, Allocation{Holder: v, Amount: new(big.Int).Set(each)})
	}
	return out
}

func dedupe(voters []string, skip string) []string {
	seen := map[string]struct{}{skip: {}}
	out := make([]string, 0, len(voters))
	for _, v := range voters {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

// Symbol derives a ticker from a meme name: upper-case alphanumerics, at most
// six characters, "MEME" when nothing is left.
func Symbol(name string) string {
	s := nonAlnum.ReplaceAllString(strings.ToUpper(name), "")
	if len(s) > 6 {
		s = s[:6]
	}
	if s == "" {
		return "MEME"
	}
	return s
}
