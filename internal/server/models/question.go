package models

import "time"

const (
	// SlugMaxLength bounds the generated question slug.
	SlugMaxLength  = 50
	TitleMaxLength = 255
)

type Question struct {
	ID               string
	Title            string
	Body             string
	AuthorID         string
	AuthorName       string
	Slug             string
	Rating           int
	AcceptedAnswerID *string
	AnswersCount     int
	Tags             []Tag
	CreatedAt        time.Time
}

// HasAnswer reports whether the question has an accepted answer.
func (q *Question) HasAnswer() bool {
	return q.AcceptedAnswerID != nil
}

// IsAccepted reports whether answerID is the accepted answer of q.
func (q *Question) IsAccepted(answerID string) bool {
	return q.AcceptedAnswerID != nil && *q.AcceptedAnswerID == answerID
}

func (q *Question) VoteTarget() VoteTarget {
	return VoteTarget{Kind: TargetQuestion, ID: q.ID}
}

func (q *Question) Author() string { return q.AuthorID }

func (q *Question) CurrentRating() int { return q.Rating }
