// Package answers declares the repository contract for answers and its SQL
// implementation.
package answers

import (
	"context"

	"github.com/dmitrijs2005/hasker/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Answer) error
	GetByID(ctx context.Context, id string) (*models.Answer, error)
	// ListByQuestion returns the answers of a question ordered by rating,
	// then creation time, both descending.
	ListByQuestion(ctx context.Context, questionID string, page models.PageRequest) ([]models.Answer, int, error)
	AdjustRating(ctx context.Context, id string, delta int) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteByQuestion(ctx context.Context, questionID string) error
}
