package indexer

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"

	"cropCircle/internal/model"
	"cropCircle/internal/notify"
)

func TestStartBlock(t *testing.T) {
	cases := []struct {
		name    string
		deploy  uint64
		cp      Checkpoint
		resumed bool
		want    uint64
	}{
		{name: "fresh", deploy: 40, want: 40},
		{name: "resume", deploy: 40, cp: Checkpoint{LastProcessedBlock: 57}, resumed: true, want: 58},
		{name: "checkpoint at deploy block", deploy: 40, cp: Checkpoint{LastProcessedBlock: 40}, resumed: true, want: 41},
		{name: "stale checkpoint", deploy: 40, cp: Checkpoint{LastProcessedBlock: 12}, resumed: true, want: 40},
	}
	for _, tc := range cases {
		if got := StartBlock(tc.deploy, tc.cp, tc.resumed); got != tc.want {
			t.Fatalf("%s: start %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestWindow(t *testing.T) {
	got, ok := Window(10, 25, 0)
	if !ok || got != (BlockRange{From: 10, To: 25}) {
		t.Fatalf("head window mismatch: %+v %v", got, ok)
	}

	got, ok = Window(10, 0, 18)
	if !ok || got != (BlockRange{From: 10, To: 18}) {
		t.Fatalf("pinned window mismatch: %+v %v", got, ok)
	}

	got, ok = Window(7, 7, 0)
	if !ok || got != (BlockRange{From: 7, To: 7}) {
		t.Fatalf("single block window mismatch: %+v %v", got, ok)
	}

	if _, ok := Window(26, 25, 0); ok {
		t.Fatalf("expected empty window once caught up")
	}
}

func TestBatches(t *testing.T) {
	got, err := Batches(BlockRange{From: 100, To: 106}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []BlockRange{
		{From: 100, To: 102},
		{From: 103, To: 105},
		{From: 106, To: 106},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("batches mismatch: %+v != %+v", got, want)
	}

	if _, err := Batches(BlockRange{From: 10, To: 9}, 1); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if _, err := Batches(BlockRange{From: 1, To: 10}, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestRunnerResumesIntoSingleBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := NewCheckpointStore(path, true, testContract).Save(20); err != nil {
		t.Fatalf("save: %v", err)
	}

	source := &fakeSource{latest: 21, logs: []types.Log{
		eventCreatedLog(t, 20, 0),
		eventCreatedLog(t, 21, 0),
	}}
	var got []model.Notification
	sink := notify.Func(func(_ context.Context, n model.Notification) error {
		got = append(got, n)
		return nil
	})

	err := NewRunner(RunConfig{
		FromBlock:         5,
		Contract:          testContract,
		BatchSize:         50,
		CheckpointPath:    path,
		CheckpointEnabled: true,
	}, source, sink, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if want := []BlockRange{{From: 21, To: 21}}; !reflect.DeepEqual(source.ranges, want) {
		t.Fatalf("scanned ranges %+v, want %+v", source.ranges, want)
	}
	if len(got) != 1 || got[0].Kind != model.KindEventCreated || got[0].At.Unix() != 1700000021 {
		t.Fatalf("unexpected notifications: %+v", got)
	}
}

func TestRunnerSkipsStaleCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := NewCheckpointStore(path, true, testContract).Save(3); err != nil {
		t.Fatalf("save: %v", err)
	}

	source := &fakeSource{}
	err := NewRunner(RunConfig{
		FromBlock:         30,
		ToBlock:           33,
		Contract:          testContract,
		BatchSize:         2,
		CheckpointPath:    path,
		CheckpointEnabled: true,
	}, source, notify.Discard, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []BlockRange{{From: 30, To: 31}, {From: 32, To: 33}}
	if !reflect.DeepEqual(source.ranges, want) {
		t.Fatalf("scanned ranges %+v, want %+v", source.ranges, want)
	}
}
