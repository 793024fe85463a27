package postgres

import (
	"context"
	"strings"
	"testing"
)

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"events", "memes", "balances", "votes"} {
		if !strings.Contains(Schema, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Fatalf("schema missing table %s", table)
		}
	}
	if !strings.Contains(Schema, "CHECK (amount >= 0)") {
		t.Fatalf("balances must reject negative amounts")
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
