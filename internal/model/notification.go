package model

import "time"

// NotificationKind names a state change observable by collaborators.
type NotificationKind string

const (
	KindEventCreated     NotificationKind = "event_created"
	KindMemeSubmitted    NotificationKind = "meme_submitted"
	KindVoteCast         NotificationKind = "vote_cast"
	KindBalanceChanged   NotificationKind = "balance_changed"
	KindEventEnded       NotificationKind = "event_ended"
	KindTokenIssued      NotificationKind = "token_issued"
	KindTokenIssueFailed NotificationKind = "token_issue_failed"
)

// Notification describes one committed state change.
type Notification struct {
	ID       string           `json:"id"`
	Kind     NotificationKind `json:"kind"`
	EventID  string           `json:"event_id"`
	MemeID   uint64           `json:"meme_id,omitempty"`
	Actor    string           `json:"actor,omitempty"`
	Name     string           `json:"name,omitempty"`
	Content  string           `json:"content_ref,omitempty"`
	IsUpvote *bool            `json:"is_upvote,omitempty"`
	Balance  *int64           `json:"balance,omitempty"`
	TokenRef string           `json:"token_ref,omitempty"`
	Error    string           `json:"error,omitempty"`
	At       time.Time        `json:"at"`
	Chain    *ChainRef        `json:"chain,omitempty"`
}

// ChainRef locates the contract log a notification was decoded from.
type ChainRef struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Removed     bool   `json:"removed,omitempty"`
}
