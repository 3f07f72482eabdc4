// Package votes declares the repository contract for the vote ledger and its
// SQL implementation.
package votes

import (
	"context"

	"github.com/dmitrijs2005/hasker/internal/server/models"
)

// Repository stores at most one vote per (user, target).
type Repository interface {
	// Find returns the vote of userID on target or common.ErrorNotFound.
	Find(ctx context.Context, userID string, target models.VoteTarget) (*models.Vote, error)
	// Insert stores v and reports false when the user already has a vote on
	// the target.
	Insert(ctx context.Context, v *models.Vote) (bool, error)
	// Delete removes the vote with the given ID and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	DeleteForTarget(ctx context.Context, target models.VoteTarget) error
	// DeleteForQuestionAnswers removes the votes cast on the answers of a question.
	DeleteForQuestionAnswers(ctx context.Context, questionID string) error
}
