package indexer

import "fmt"

// BlockRange is an inclusive span of blocks scanned for contract logs.
type BlockRange struct {
	From uint64
	To   uint64
}

// StartBlock returns the first block a sync pass reads. A checkpoint only
// moves the start forward; one behind the contract's deployment block is
// ignored.
func StartBlock(deployBlock uint64, cp Checkpoint, resumed bool) uint64 {
	if resumed && cp.LastProcessedBlock >= deployBlock {
		return cp.LastProcessedBlock + 1
	}
	return deployBlock
}

// Window clamps a pass that starts at start. A non-zero toBlock pins the end,
// otherwise the pass runs to head. ok is false when start is already past it.
func Window(start, head, toBlock uint64) (BlockRange, bool) {
	end := head
	if toBlock != 0 {
		end = toBlock
	}
	if start > end {
		return BlockRange{}, false
	}
	return BlockRange{From: start, To: end}, true
}

// Batches cuts r into ascending pieces of at most size blocks. Each piece is
// checkpointed once its logs are published.
func Batches(r BlockRange, size uint64) ([]BlockRange, error) {
	if size == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if r.To < r.From {
		return nil, fmt.Errorf("block range %d-%d is inverted", r.From, r.To)
	}

	var out []BlockRange
	for from := r.From; ; from += size {
		to := r.To
		if r.To-from >= size {
			to = from + size - 1
		}
		out = append(out, BlockRange{From: from, To: to})
		if to == r.To {
			return out, nil
		}
	}
}
