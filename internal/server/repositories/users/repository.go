// Package users declares the repository contract for user accounts and its
// SQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/hasker/internal/server/models"
)

// Repository defines persistence operations on user accounts.
type Repository interface {
	// Create stores a new user. A taken username or e-mail yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	UpdateEmail(ctx context.Context, id, email string) error
	// UpdateAvatar sets the avatar storage key; an empty key clears it.
	UpdateAvatar(ctx context.Context, id, key string) error
}
