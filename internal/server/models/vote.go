package models

import "time"

// TargetKind names the kind of entity a vote is cast on.
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetAnswer   TargetKind = "answer"
)

// VoteTarget identifies a votable entity.
type VoteTarget struct {
	Kind TargetKind
	ID   string
}

// Votable is implemented by entities that carry a rating and accept votes.
type Votable interface {
	VoteTarget() VoteTarget
	// Author returns the user ID of the entity author.
	Author() string
	CurrentRating() int
}

// Vote is one user's opinion on one target: Value true is an up-vote.
type Vote struct {
	ID        string
	UserID    string
	Target    VoteTarget
	Value     bool
	CreatedAt time.Time
}

// Delta is the rating contribution of a vote with value v.
func Delta(v bool) int {
	if v {
		return 1
	}
	return -1
}
