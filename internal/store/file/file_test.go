package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cropCircle/internal/model"
	"cropCircle/internal/store"
)

func TestStateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "cropcircle.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	err = s.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutEvent(ctx, model.Event{ID: "0x01", Creator: "0xowner", StartTime: time.Unix(10, 0).UTC(), Active: true}); err != nil {
			return err
		}
		return tx.PutBalance(ctx, "0xuser", "0x01", 39)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file should be renamed away, stat err=%v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	err = reopened.View(ctx, func(r store.Reader) error {
		event, ok, err := r.Event(ctx, "0x01")
		if err != nil || !ok || event.Creator != "0xowner" {
			t.Fatalf("event after reopen: %+v %v %v", event, ok, err)
		}
		balance, ok, err := r.Balance(ctx, "0xuser", "0x01")
		if err != nil || !ok || balance != 39 {
			t.Fatalf("balance after reopen: %d %v %v", balance, ok, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestOpenRejectsDirectory(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory path")
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
