package model

import "time"

// Event is a time-boxed meme contest.
type Event struct {
	ID            string        `json:"id"`
	Creator       string        `json:"creator"`
	StartTime     time.Time     `json:"start_time"`
	Duration      time.Duration `json:"duration"`
	EndTime       time.Time     `json:"end_time"`
	URI           string        `json:"uri"`
	Active        bool          `json:"active"`
	WinningMemeID uint64        `json:"winning_meme_id,omitempty"`
	TokenRef      string        `json:"token_ref,omitempty"`
}

// HasWinner reports whether a winning meme has been recorded.
func (e Event) HasWinner() bool {
	return e.WinningMemeID != 0
}
