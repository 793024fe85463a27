package model

import (
	"reflect"
	"testing"
	"time"
)

func TestSortMemesByUpvotes(t *testing.T) {
	memes := []Meme{
		{ID: 1, Upvotes: 2},
		{ID: 2, Upvotes: 5},
		{ID: 3, Upvotes: 5},
		{ID: 4, Upvotes: 0},
	}

	SortMemes(memes, true)

	want := []uint64{2, 3, 1, 4}
	if got := MemeIDs(memes); !reflect.DeepEqual(got, want) {
		t.Fatalf("order mismatch: %v != %v", got, want)
	}
}

func TestSortMemesByTimestamp(t *testing.T) {
	base := time.Unix(1700000000, 0)
	memes := []Meme{
		{ID: 1, CreatedAt: base},
		{ID: 2, CreatedAt: base.Add(time.Minute)},
		{ID: 3, CreatedAt: base},
	}

	SortMemes(memes, false)

	want := []uint64{2, 3, 1}
	if got := MemeIDs(memes); !reflect.DeepEqual(got, want) {
		t.Fatalf("order mismatch: %v != %v", got, want)
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("up"); err != nil || d != Up {
		t.Fatalf("parse up: %v %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Fatalf("expected error for invalid direction")
	}
	if DirectionOf(false) != Down {
		t.Fatalf("false should map to down")
	}
}
