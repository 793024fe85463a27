package redis

import (
	"reflect"
	"testing"
)

func TestKeyNamespace(t *testing.T) {
	s := &Store{namespace: "cropcircle"}
	if got := s.Key("memes_0x01"); got != "cropcircle:memes_0x01" {
		t.Fatalf("namespaced key mismatch: %s", got)
	}
	bare := &Store{}
	if got := bare.Key("memes_0x01"); got != "memes_0x01" {
		t.Fatalf("bare key mismatch: %s", got)
	}
}

func TestEscapeGlob(t *testing.T) {
	got := escapeGlob(`votes_[a]*?_1_`)
	want := `votes_\[a\]\*\?_1_`
	if got != want {
		t.Fatalf("escape mismatch: %s != %s", got, want)
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "a", "b", "c", "c"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dedupe mismatch: %v != %v", got, want)
	}
}
