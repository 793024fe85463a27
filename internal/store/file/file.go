package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cropCircle/internal/store/memory"
)

// snapshot is the on-disk form of the durable store.
type snapshot struct {
	Entries   map[string]string `json:"entries"`
	UpdatedAt string            `json:"updated_at"`
}

// Store is a memory store whose state survives restarts in a JSON file.
type Store struct {
	*memory.Store
	path string
}

// Open loads path if it exists and persists every commit back to it.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	entries, err := load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.Store = memory.NewWithState(entries, s.persist)
	return s, nil
}

func load(path string) (map[string]string, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("stat state file: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("state file path is a directory")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if snap.Entries == nil {
		snap.Entries = map[string]string{}
	}
	return snap.Entries, nil
}

func (s *Store) persist(_ context.Context, next map[string]string) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	data, err := json.Marshal(snapshot{
		Entries:   next,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}
