package contract

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"cropCircle/internal/game"
	"cropCircle/internal/ledger"
	"cropCircle/internal/model"
	"cropCircle/internal/notify"
)

// Backend is the read side of a chain connection.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Logs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// Transactor signs and sends transactions from one account.
type Transactor interface {
	Address() common.Address
	Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error)
}

// Options configures Game.
type Options struct {
	FromBlock uint64
	ChainID   uint64
	Notifier  notify.Notifier
	Logger    *zap.Logger
}

// Game implements game.Service against a deployed CropCircle contract. The
// contract enforces every rule; reverts are mapped onto game error kinds.
type Game struct {
	backend  Backend
	tx       Transactor
	address  common.Address
	abi      abi.ABI
	decoder  *Decoder
	opts     Options
	notifier notify.Notifier
	logger   *zap.Logger
}

var _ game.Service = (*Game)(nil)

// NewGame binds the contract at address. tx may be nil for a read-only
// client; mutating calls then fail with ErrUnauthorized.
func NewGame(backend Backend, tx Transactor, address common.Address, opts Options) (*Game, error) {
	parsed, err := CropCircleABI()
	if err != nil {
		return nil, fmt.Errorf("parse cropcircle abi: %w", err)
	}
	decoder, err := NewDecoder(opts.ChainID)
	if err != nil {
		return nil, err
	}
	g := &Game{
		backend:  backend,
		tx:       tx,
		address:  address,
		abi:      parsed,
		decoder:  decoder,
		opts:     opts,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
	if g.notifier == nil {
		g.notifier = notify.Discard
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g, nil
}

type eventDetails struct {
	Creator       common.Address
	StartTime     *big.Int
	EndTime       *big.Int
	EventUri      string
	Active        bool
	WinningMemeId *big.Int
	TokenAddress  common.Address
}

type memeDetails struct {
	Name        string
	Description string
	ImageHash   string
	Creator     common.Address
	Timestamp   *big.Int
	Upvotes     *big.Int
	Downvotes   *big.Int
	Exists      bool
}

func (g *Game) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &g.address, Data: data}
	resp, err := g.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, MapRevert(err))
	}
	values, err := g.abi.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// send transacts as caller and publishes the decoded receipt logs.
func (g *Game) send(ctx context.Context, caller, method string, args ...interface{}) ([]model.Notification, error) {
	if g.tx == nil {
		return nil, fmt.Errorf("%s: no signer configured: %w", method, game.ErrUnauthorized)
	}
	signer := strings.ToLower(g.tx.Address().Hex())
	if game.NormalizeID(caller) != signer {
		return nil, fmt.Errorf("%s: caller %s is not the signer: %w", method, caller, game.ErrUnauthorized)
	}

	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	receipt, err := g.tx.Transact(ctx, g.address, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, MapRevert(err))
	}

	var out []model.Notification
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != g.address || len(lg.Topics) == 0 || !g.decoder.CanDecode(lg.Topics[0]) {
			continue
		}
		n, err := g.decoder.Decode(*lg)
		if err != nil {
			g.logger.Warn("decode receipt log failed", zap.String("tx_hash", receipt.TxHash.Hex()), zap.Error(err))
			continue
		}
		out = append(out, n)
	}
	for _, n := range out {
		g.publish(ctx, n)
	}
	return out, nil
}

func (g *Game) publish(ctx context.Context, n model.Notification) {
	n = notify.Stamp(n, time.Now())
	if err := g.notifier.Publish(ctx, n); err != nil {
		g.logger.Warn("publish notification failed", zap.String("kind", string(n.Kind)), zap.Error(err))
	}
}

func (g *Game) publishBalance(ctx context.Context, user, eventID string) {
	balance, err := g.Balance(ctx, user, eventID)
	if err != nil {
		g.logger.Warn("read balance after tx failed", zap.String("event_id", eventID), zap.Error(err))
		return
	}
	g.publish(ctx, model.Notification{
		Kind:    model.KindBalanceChanged,
		EventID: eventID,
		Actor:   game.NormalizeID(user),
		Balance: &balance,
	})
}

func eventHash(id string) (common.Hash, error) {
	id = game.NormalizeID(id)
	raw := strings.TrimPrefix(id, "0x")
	if len(raw) != 64 {
		return common.Hash{}, fmt.Errorf("event id %q: %w", id, game.ErrNotFound)
	}
	return common.HexToHash(id), nil
}

func find(ns []model.Notification, kind model.NotificationKind) (model.Notification, bool) {
	for _, n := range ns {
		if n.Kind == kind {
			return n, true
		}
	}
	return model.Notification{}, false
}

func (g *Game) CreateEvent(ctx context.Context, caller string, durationSeconds int64, uri string) (model.Event, error) {
	if durationSeconds <= 0 {
		return model.Event{}, fmt.Errorf("create event: %w", game.ErrInvalidDuration)
	}
	if strings.TrimSpace(uri) == "" {
		return model.Event{}, fmt.Errorf("create event: %w", game.ErrInvalidURI)
	}
	ns, err := g.send(ctx, caller, "createEvent", big.NewInt(durationSeconds), uri)
	if err != nil {
		return model.Event{}, err
	}
	created, ok := find(ns, model.KindEventCreated)
	if !ok {
		return model.Event{}, fmt.Errorf("create event: EventCreated log missing")
	}
	return g.Event(ctx, created.EventID)
}

func (g *Game) Event(ctx context.Context, id string) (model.Event, error) {
	hash, err := eventHash(id)
	if err != nil {
		return model.Event{}, err
	}
	values, err := g.call(ctx, "getEventDetails", hash)
	if err != nil {
		return model.Event{}, err
	}
	details := *abi.ConvertType(values[0], new(eventDetails)).(*eventDetails)
	if details.StartTime == nil || details.StartTime.Sign() == 0 {
		return model.Event{}, fmt.Errorf("event %s: %w", hash.Hex(), game.ErrNotFound)
	}

	start := time.Unix(details.StartTime.Int64(), 0).UTC()
	end := time.Unix(details.EndTime.Int64(), 0).UTC()
	event := model.Event{
		ID:        hash.Hex(),
		Creator:   strings.ToLower(details.Creator.Hex()),
		StartTime: start,
		Duration:  end.Sub(start),
		EndTime:   end,
		URI:       details.EventUri,
		Active:    details.Active,
	}
	if details.WinningMemeId != nil && details.WinningMemeId.IsUint64() {
		event.WinningMemeID = details.WinningMemeId.Uint64()
	}
	if details.TokenAddress != (common.Address{}) {
		event.TokenRef = details.TokenAddress.Hex()
	}
	return event, nil
}

// Events reads EventCreated logs from the configured start block.
func (g *Game) Events(ctx context.Context) ([]model.Event, error) {
	logs, err := g.backend.Logs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(g.opts.FromBlock),
		Addresses: []common.Address{g.address},
		Topics:    [][]common.Hash{{g.abi.Events["EventCreated"].ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("filter EventCreated: %w", err)
	}
	events := make([]model.Event, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		if len(logs[i].Topics) < 2 || logs[i].Removed {
			continue
		}
		event, err := g.Event(ctx, logs[i].Topics[1].Hex())
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.After(events[j].StartTime)
	})
	return events, nil
}

func (g *Game) SubmitMeme(ctx context.Context, caller, eventID string, in game.MemeInput) (model.Meme, error) {
	hash, err := eventHash(eventID)
	if err != nil {
		return model.Meme{}, err
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.ContentRef) == "" || strings.TrimSpace(in.Description) == "" {
		return model.Meme{}, fmt.Errorf("submit meme: %w", game.ErrInvalidInput)
	}
	ns, err := g.send(ctx, caller, "submitMeme", hash, in.Name, in.ContentRef, in.Description)
	if err != nil {
		return model.Meme{}, err
	}
	submitted, ok := find(ns, model.KindMemeSubmitted)
	if !ok {
		return model.Meme{}, fmt.Errorf("submit meme: MemeSubmitted log missing")
	}
	g.publishBalance(ctx, caller, hash.Hex())
	return g.Meme(ctx, hash.Hex(), submitted.MemeID)
}

func (g *Game) Meme(ctx context.Context, eventID string, memeID uint64) (model.Meme, error) {
	hash, err := eventHash(eventID)
	if err != nil {
		return model.Meme{}, err
	}
	values, err := g.call(ctx, "getMemeDetails", hash, new(big.Int).SetUint64(memeID))
	if err != nil {
		return model.Meme{}, err
	}
	details := *abi.ConvertType(values[0], new(memeDetails)).(*memeDetails)
	if !details.Exists {
		return model.Meme{}, fmt.Errorf("meme %d of event %s: %w", memeID, hash.Hex(), game.ErrNotFound)
	}
	return model.Meme{
		ID:          memeID,
		EventID:     hash.Hex(),
		Name:        details.Name,
		ContentRef:  details.ImageHash,
		Description: details.Description,
		Creator:     strings.ToLower(details.Creator.Hex()),
		CreatedAt:   time.Unix(details.Timestamp.Int64(), 0).UTC(),
		Upvotes:     details.Upvotes.Uint64(),
		Downvotes:   details.Downvotes.Uint64(),
		Exists:      true,
	}, nil
}

func (g *Game) MemesSorted(ctx context.Context, eventID string, byUpvotes bool) ([]uint64, error) {
	hash, err := eventHash(eventID)
	if err != nil {
		return nil, err
	}
	values, err := g.call(ctx, "getMemesSorted", hash, byUpvotes)
	if err != nil {
		return nil, err
	}
	raw, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("getMemesSorted: unexpected type %T", values[0])
	}
	ids := make([]uint64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.Uint64())
	}
	return ids, nil
}

func (g *Game) Memes(ctx context.Context, eventID string, byUpvotes bool) ([]model.Meme, error) {
	ids, err := g.MemesSorted(ctx, eventID, byUpvotes)
	if err != nil {
		return nil, err
	}
	memes := make([]model.Meme, 0, len(ids))
	for _, id := range ids {
		meme, err := g.Meme(ctx, eventID, id)
		if err != nil {
			return nil, err
		}
		memes = append(memes, meme)
	}
	return memes, nil
}

func (g *Game) Vote(ctx context.Context, caller, eventID string, memeID uint64, isUpvote bool) (model.Meme, error) {
	hash, err := eventHash(eventID)
	if err != nil {
		return model.Meme{}, err
	}
	if _, err := g.send(ctx, caller, "vote", hash, new(big.Int).SetUint64(memeID), isUpvote); err != nil {
		return model.Meme{}, err
	}
	g.publishBalance(ctx, caller, hash.Hex())
	return g.Meme(ctx, hash.Hex(), memeID)
}

// VoteOf replays the voter's VoteCast logs; the latest one wins.
func (g *Game) VoteOf(ctx context.Context, eventID string, memeID uint64, voter string) (model.Direction, bool, error) {
	hash, err := eventHash(eventID)
	if err != nil {
		return "", false, err
	}
	if !common.IsHexAddress(voter) {
		return "", false, nil
	}
	logs, err := g.backend.Logs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(g.opts.FromBlock),
		Addresses: []common.Address{g.address},
		Topics: [][]common.Hash{
			{g.abi.Events["VoteCast"].ID},
			{hash},
			{common.BigToHash(new(big.Int).SetUint64(memeID))},
			{common.BytesToHash(common.HexToAddress(voter).Bytes())},
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("filter VoteCast: %w", err)
	}
	for i := len(logs) - 1; i >= 0; i-- {
		if logs[i].Removed {
			continue
		}
		n, err := g.decoder.Decode(logs[i])
		if err != nil {
			return "", false, err
		}
		if n.IsUpvote != nil {
			return model.DirectionOf(*n.IsUpvote), true, nil
		}
	}
	return "", false, nil
}

// Balance returns the contract's stored balance. The contract only writes a
// balance on a user's first charge, so a zero slot with no submission or vote
// from that user still holds the initial grant.
func (g *Game) Balance(ctx context.Context, user, eventID string) (int64, error) {
	hash, err := eventHash(eventID)
	if err != nil {
		return 0, err
	}
	if !common.IsHexAddress(user) {
		return 0, fmt.Errorf("user %q: %w", user, game.ErrInvalidInput)
	}
	addr := common.HexToAddress(user)
	values, err := g.call(ctx, "userCropBalance", addr, hash)
	if err != nil {
		return 0, err
	}
	amount, err := asBigInt(values[0])
	if err != nil {
		return 0, err
	}
	if !amount.IsInt64() {
		return 0, fmt.Errorf("balance %s overflows int64", amount)
	}
	if amount.Sign() == 0 {
		charged, err := g.charged(ctx, hash, addr)
		if err != nil {
			return 0, err
		}
		if !charged {
			return ledger.InitialGrant, nil
		}
	}
	return amount.Int64(), nil
}

// charged reports whether user has submitted or voted in the event.
func (g *Game) charged(ctx context.Context, hash common.Hash, user common.Address) (bool, error) {
	logs, err := g.backend.Logs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(g.opts.FromBlock),
		Addresses: []common.Address{g.address},
		Topics: [][]common.Hash{
			{g.abi.Events["MemeSubmitted"].ID, g.abi.Events["VoteCast"].ID},
			{hash},
			nil,
			{common.BytesToHash(user.Bytes())},
		},
	})
	if err != nil {
		return false, fmt.Errorf("filter charges: %w", err)
	}
	for _, lg := range logs {
		if !lg.Removed {
			return true, nil
		}
	}
	return false, nil
}

// GrantTickets is not offered by the contract.
func (g *Game) GrantTickets(context.Context, string, string, string, int64) (int64, error) {
	return 0, fmt.Errorf("grant tickets: %w", game.ErrUnsupported)
}

func (g *Game) EndEvent(ctx context.Context, eventID string) (model.Event, error) {
	hash, err := eventHash(eventID)
	if err != nil {
		return model.Event{}, err
	}
	caller := ""
	if g.tx != nil {
		caller = g.tx.Address().Hex()
	}
	ns, err := g.send(ctx, caller, "endEvent", hash)
	if err != nil {
		return model.Event{}, err
	}
	if ended, ok := find(ns, model.KindEventEnded); ok && ended.TokenRef != "" {
		issued := ended
		issued.ID = ""
		issued.Kind = model.KindTokenIssued
		g.publish(ctx, issued)
	}
	return g.Event(ctx, hash.Hex())
}
