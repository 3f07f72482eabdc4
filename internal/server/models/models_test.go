package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuestion_HasAnswer(t *testing.T) {
	q := &Question{ID: "q1"}
	assert.False(t, q.HasAnswer())
	assert.False(t, q.IsAccepted("a1"))

	a := "a1"
	q.AcceptedAnswerID = &a
	assert.True(t, q.HasAnswer())
	assert.True(t, q.IsAccepted("a1"))
	assert.False(t, q.IsAccepted("a2"))
}

func TestVotable(t *testing.T) {
	var v Votable = &Question{ID: "q", AuthorID: "u", Rating: 3}
	assert.Equal(t, VoteTarget{Kind: TargetQuestion, ID: "q"}, v.VoteTarget())
	assert.Equal(t, "u", v.Author())
	assert.Equal(t, 3, v.CurrentRating())

	v = &Answer{ID: "a", AuthorID: "w", Rating: -1}
	assert.Equal(t, VoteTarget{Kind: TargetAnswer, ID: "a"}, v.VoteTarget())
	assert.Equal(t, "w", v.Author())
	assert.Equal(t, -1, v.CurrentRating())

	assert.Equal(t, 1, Delta(true))
	assert.Equal(t, -1, Delta(false))
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortPopular, ParseSort("popular"))
	assert.Equal(t, SortNew, ParseSort("new"))
	assert.Equal(t, SortNew, ParseSort("bogus"))
	assert.Equal(t, SortNew, ParseSort(""))
}

func TestNewPageRequest(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 1, PageSize: 20}, NewPageRequest(0, 0, 20))
	assert.Equal(t, PageRequest{Page: 3, PageSize: 5}, NewPageRequest(3, 5, 20))
	assert.Equal(t, PageRequest{Page: 1, PageSize: MaxPageSize}, NewPageRequest(-1, 1000, 20))
	assert.Equal(t, 10, NewPageRequest(3, 5, 20).Offset())
}

func TestPage(t *testing.T) {
	p := NewPage[int](nil, 0, PageRequest{Page: 1, PageSize: 10})
	assert.NotNil(t, p.Items)
	assert.Equal(t, 1, p.NumPages())
	assert.False(t, p.HasNext())
	assert.False(t, p.HasPrev())

	p = NewPage([]int{1, 2}, 21, PageRequest{Page: 2, PageSize: 10})
	assert.Equal(t, 3, p.NumPages())
	assert.True(t, p.HasNext())
	assert.True(t, p.HasPrev())
}
