package indexer

import (
	"fmt"
	"time"

	"cropCircle/internal/model"
)

// withBlockTime stamps n with its block time and an id derived from the log
// position, so replays of the same log carry the same id.
func withBlockTime(n model.Notification, timestamp uint64) model.Notification {
	n.At = time.Unix(int64(timestamp), 0).UTC()
	if n.Chain != nil {
		n.ID = fmt.Sprintf("%d:%s:%d", n.Chain.ChainID, n.Chain.TxHash, n.Chain.LogIndex)
	}
	return n
}
