package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"cropCircle/internal/model"
)

// Decoder turns CropCircle contract logs into notifications.
type Decoder struct {
	abi         abi.ABI
	topicToName map[common.Hash]string
	chainID     uint64
}

// NewDecoder builds a decoder. chainID is copied into every ChainRef.
func NewDecoder(chainID uint64) (*Decoder, error) {
	parsed, err := CropCircleABI()
	if err != nil {
		return nil, fmt.Errorf("parse cropcircle abi: %w", err)
	}
	topicToName := make(map[common.Hash]string)
	for _, name := range []string{"EventCreated", "MemeSubmitted", "VoteCast", "EventEnded"} {
		topicToName[parsed.Events[name].ID] = name
	}
	return &Decoder{abi: parsed, topicToName: topicToName, chainID: chainID}, nil
}

// Topics returns the topic0 values the decoder understands.
func (d *Decoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.topicToName))
	for _, name := range []string{"EventCreated", "MemeSubmitted", "VoteCast", "EventEnded"} {
		out = append(out, d.abi.Events[name].ID)
	}
	return out
}

// CanDecode checks if topic0 is a CropCircle event.
func (d *Decoder) CanDecode(topic0 common.Hash) bool {
	_, ok := d.topicToName[topic0]
	return ok
}

// Decode converts a log into a notification. An EventEnded log with a
// non-zero token address also sets TokenRef.
func (d *Decoder) Decode(lg types.Log) (model.Notification, error) {
	if len(lg.Topics) == 0 {
		return model.Notification{}, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[lg.Topics[0]]
	if !ok {
		return model.Notification{}, fmt.Errorf("unsupported topic0: %s", lg.Topics[0].Hex())
	}

	values := make(map[string]interface{})
	event := d.abi.Events[name]
	if len(lg.Data) > 0 {
		if err := event.Inputs.NonIndexed().UnpackIntoMap(values, lg.Data); err != nil {
			return model.Notification{}, fmt.Errorf("unpack %s: %w", name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(lg.Topics)-1 < len(indexed) {
		return model.Notification{}, fmt.Errorf("%s: expected %d indexed topics, got %d", name, len(indexed), len(lg.Topics)-1)
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, lg.Topics[1:]); err != nil {
		return model.Notification{}, fmt.Errorf("parse %s topics: %w", name, err)
	}

	n := model.Notification{
		EventID: eventIDFromValue(values["eventId"]),
		Chain:   d.chainRef(lg),
	}
	switch name {
	case "EventCreated":
		n.Kind = model.KindEventCreated
		n.Content, _ = values["eventUri"].(string)
	case "MemeSubmitted":
		n.Kind = model.KindMemeSubmitted
		n.MemeID = uint64Value(values["memeId"])
		n.Actor = addressValue(values["creator"])
		n.Name, _ = values["name"].(string)
		n.Content, _ = values["imageHash"].(string)
	case "VoteCast":
		n.Kind = model.KindVoteCast
		n.MemeID = uint64Value(values["memeId"])
		n.Actor = addressValue(values["voter"])
		if up, ok := values["isUpvote"].(bool); ok {
			n.IsUpvote = &up
		}
	case "EventEnded":
		n.Kind = model.KindEventEnded
		n.MemeID = uint64Value(values["winningMemeId"])
		if token := addressValue(values["tokenAddress"]); token != "" && token != strings.ToLower(common.Address{}.Hex()) {
			n.TokenRef = token
		}
	}
	return n, nil
}

func (d *Decoder) chainRef(lg types.Log) *model.ChainRef {
	return &model.ChainRef{
		ChainID:     d.chainID,
		BlockNumber: lg.BlockNumber,
		BlockHash:   lg.BlockHash.Hex(),
		TxHash:      lg.TxHash.Hex(),
		LogIndex:    uint64(lg.Index),
		Address:     strings.ToLower(lg.Address.Hex()),
		Removed:     lg.Removed,
	}
}

func eventIDFromValue(v interface{}) string {
	switch id := v.(type) {
	case [32]byte:
		return common.Hash(id).Hex()
	case common.Hash:
		return id.Hex()
	default:
		return ""
	}
}

func addressValue(v interface{}) string {
	addr, err := asAddress(v)
	if err != nil {
		return ""
	}
	return strings.ToLower(addr.Hex())
}

func uint64Value(v interface{}) uint64 {
	n, err := asBigInt(v)
	if err != nil || !n.IsUint64() {
		return 0
	}
	return n.Uint64()
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
