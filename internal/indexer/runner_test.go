package indexer

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"cropCircle/internal/contract"
	"cropCircle/internal/model"
	"cropCircle/internal/notify"
)

var testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")

type fakeSource struct {
	latest   uint64
	logs     []types.Log
	ranges   []BlockRange
	failures int
}

func (s *fakeSource) GetChainID(context.Context) (*big.Int, error) { return big.NewInt(31337), nil }

func (s *fakeSource) LatestBlockNumber(context.Context) (uint64, error) { return s.latest, nil }

func (s *fakeSource) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1700000000 + number, nil
}

func (s *fakeSource) FilterLogs(_ context.Context, from, to uint64, _ []common.Address, _ []common.Hash) ([]types.Log, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("rpc unavailable")
	}
	s.ranges = append(s.ranges, BlockRange{From: from, To: to})
	var out []types.Log
	for _, lg := range s.logs {
		if lg.BlockNumber >= from && lg.BlockNumber <= to {
			out = append(out, lg)
		}
	}
	return out, nil
}

func eventCreatedLog(t *testing.T, block uint64, index uint) types.Log {
	t.Helper()
	parsed, err := contract.CropCircleABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := parsed.Events["EventCreated"].Inputs.NonIndexed().Pack(big.NewInt(1700003600), "ipfs://event")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{parsed.Events["EventCreated"].ID, common.BigToHash(big.NewInt(int64(block)))},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block*100 + uint64(index)))),
		Index:       index,
	}
}

func TestRunnerPublishesAndCheckpoints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sync", "checkpoint.json")
	lg := eventCreatedLog(t, 12, 0)
	source := &fakeSource{latest: 15, failures: 1, logs: []types.Log{lg, lg, eventCreatedLog(t, 14, 1)}}

	var got []model.Notification
	sink := notify.Func(func(_ context.Context, n model.Notification) error {
		got = append(got, n)
		return nil
	})

	runner := NewRunner(RunConfig{
		FromBlock:         10,
		Contract:          testContract,
		BatchSize:         3,
		CheckpointPath:    path,
		CheckpointEnabled: true,
		MaxRetries:        2,
		RetryBackoff:      1,
	}, source, sink, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Kind != model.KindEventCreated || got[0].At.Unix() != 1700000012 || got[0].ID == "" {
		t.Fatalf("unexpected notification: %+v", got[0])
	}

	cp, ok, err := NewCheckpointStore(path, true, testContract).Load()
	if err != nil || !ok {
		t.Fatalf("load checkpoint: %v %v", ok, err)
	}
	if cp.LastProcessedBlock != 15 {
		t.Fatalf("checkpoint mismatch: %d", cp.LastProcessedBlock)
	}

	// A second run resumes after the checkpoint and sees nothing new.
	source.ranges = nil
	got = nil
	if err := NewRunner(RunConfig{
		FromBlock:         10,
		Contract:          testContract,
		BatchSize:         3,
		CheckpointPath:    path,
		CheckpointEnabled: true,
	}, source, sink, nil).Run(context.Background()); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(source.ranges) != 0 || len(got) != 0 {
		t.Fatalf("expected no work on rerun, got ranges=%v notifications=%d", source.ranges, len(got))
	}
}

func TestRunnerStopsOnPublishError(t *testing.T) {
	source := &fakeSource{latest: 5, logs: []types.Log{eventCreatedLog(t, 3, 0)}}
	sink := notify.Func(func(context.Context, model.Notification) error { return errors.New("broker down") })

	err := NewRunner(RunConfig{Contract: testContract, BatchSize: 10}, source, sink, nil).Run(context.Background())
	if err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestRunnerValidatesConfig(t *testing.T) {
	if err := NewRunner(RunConfig{BatchSize: 1}, &fakeSource{}, notify.Discard, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing contract")
	}
	if err := NewRunner(RunConfig{Contract: testContract}, &fakeSource{}, notify.Discard, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestCheckpointRejectsOtherContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")
	if err := NewCheckpointStore(path, true, testContract).Save(9); err != nil {
		t.Fatalf("save: %v", err)
	}
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	if _, _, err := NewCheckpointStore(path, true, other).Load(); err == nil {
		t.Fatalf("expected contract mismatch error")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file should be renamed away")
	}
}
