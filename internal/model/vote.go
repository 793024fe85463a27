package model

import "fmt"

// Direction is the side of a cast vote.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// DirectionOf maps the boolean vote flag used on the wire to a Direction.
func DirectionOf(isUpvote bool) Direction {
	if isUpvote {
		return Up
	}
	return Down
}

// IsUp reports whether d is an upvote.
func (d Direction) IsUp() bool {
	return d == Up
}

// ParseDirection parses a stored direction value.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("invalid vote direction: %q", s)
	}
}

// Vote is a single voter's current position on a meme.
type Vote struct {
	EventID   string    `json:"event_id"`
	MemeID    uint64    `json:"meme_id"`
	Voter     string    `json:"voter"`
	Direction Direction `json:"direction"`
}
