package models

import "time"

type Answer struct {
	ID         string
	QuestionID string
	AuthorID   string
	AuthorName string
	Body       string
	Rating     int
	CreatedAt  time.Time
}

func (a *Answer) VoteTarget() VoteTarget {
	return VoteTarget{Kind: TargetAnswer, ID: a.ID}
}

func (a *Answer) Author() string { return a.AuthorID }

func (a *Answer) CurrentRating() int { return a.Rating }
