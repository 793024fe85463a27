package model

import (
	"sort"
	"time"
)

// Meme is a single contest entry.
type Meme struct {
	ID          uint64    `json:"id"`
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	ContentRef  string    `json:"content_ref"`
	Description string    `json:"description"`
	Creator     string    `json:"creator"`
	CreatedAt   time.Time `json:"created_at"`
	Upvotes     uint64    `json:"upvotes"`
	Downvotes   uint64    `json:"downvotes"`
	Exists      bool      `json:"exists"`
}

// SortMemes orders memes in place. By upvotes: most upvoted first, lower id
// wins ties. Otherwise newest first, higher id wins ties.
func SortMemes(memes []Meme, byUpvotes bool) {
	if byUpvotes {
		sort.SliceStable(memes, func(i, j int) bool {
			if memes[i].Upvotes != memes[j].Upvotes {
				return memes[i].Upvotes > memes[j].Upvotes
			}
			return memes[i].ID < memes[j].ID
		})
		return
	}
	sort.SliceStable(memes, func(i, j int) bool {
		if !memes[i].CreatedAt.Equal(memes[j].CreatedAt) {
			return memes[i].CreatedAt.After(memes[j].CreatedAt)
		}
		return memes[i].ID > memes[j].ID
	})
}

// MemeIDs returns the ids of memes in their current order.
func MemeIDs(memes []Meme) []uint64 {
	ids := make([]uint64, 0, len(memes))
	for _, m := range memes {
		ids = append(ids, m.ID)
	}
	return ids
}
