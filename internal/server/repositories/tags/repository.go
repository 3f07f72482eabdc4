// Package tags declares the repository contract for question tags and its
// SQL implementation.
package tags

import (
	"context"

	"github.com/dmitrijs2005/hasker/internal/server/models"
)

type Repository interface {
	// GetOrCreate returns the tag called name, creating it when missing.
	GetOrCreate(ctx context.Context, name string) (*models.Tag, error)
	GetByID(ctx context.Context, id string) (*models.Tag, error)
	// List returns tags ordered by name.
	List(ctx context.Context, page models.PageRequest) ([]models.Tag, int, error)

	Attach(ctx context.Context, questionID string, tagIDs ...string) error
	DetachAll(ctx context.Context, questionID string) error
	// ForQuestions returns the tags of each of the given questions, keyed
	// by question ID and ordered by name.
	ForQuestions(ctx context.Context, questionIDs []string) (map[string][]models.Tag, error)
}
