// Package questions declares the repository contract for questions and its
// SQL implementation.
package questions

import (
	"context"

	"github.com/dmitrijs2005/hasker/internal/server/models"
)

// Repository defines persistence operations on questions. Listing methods
// return the page items and the total number of matches.
type Repository interface {
	// Create stores q. A taken slug yields common.ErrorAlreadyExists.
	Create(ctx context.Context, q *models.Question) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	GetByID(ctx context.Context, id string) (*models.Question, error)
	GetBySlug(ctx context.Context, slug string) (*models.Question, error)

	List(ctx context.Context, sort models.Sort, page models.PageRequest) ([]models.Question, int, error)
	// Search matches questions whose title or body contains any of terms,
	// case-insensitively, ordered by popularity.
	Search(ctx context.Context, terms []string, page models.PageRequest) ([]models.Question, int, error)
	// SearchByTag matches questions having a tag whose name contains tag.
	SearchByTag(ctx context.Context, tag string, page models.PageRequest) ([]models.Question, int, error)
	ListByTagID(ctx context.Context, tagID string, page models.PageRequest) ([]models.Question, int, error)
	ListByAuthor(ctx context.Context, authorID string, page models.PageRequest) ([]models.Question, int, error)
	Trending(ctx context.Context, limit int) ([]models.Question, error)

	// AdjustRating adds delta to the stored rating and returns the new value.
	AdjustRating(ctx context.Context, id string, delta int) (int, error)
	// SetAcceptedAnswer moves the accepted answer pointer from prev to next
	// (nil meaning none) and reports false if the pointer no longer equals prev.
	SetAcceptedAnswer(ctx context.Context, id string, prev, next *string) (bool, error)
	// ClearAcceptedAnswer unsets the pointer on any question accepting answerID.
	ClearAcceptedAnswer(ctx context.Context, answerID string) error

	Delete(ctx context.Context, id string) error
}
