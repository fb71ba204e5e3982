// Package users declares the server-side repository contract for durable
// user credential records.
package users

import (
	"context"

	"github.com/dmitrijs2005/brestid/internal/server/models"
)

// Repository defines operations over stored user records. Emails are
// normalized (trimmed, lowercased) by the service before reaching any of
// these methods; the unique index on email is the source of truth for
// uniqueness under concurrent registration.
type Repository interface {
	// Create inserts a new user and returns it with the assigned id and
	// timestamps. A conflicting email yields common.ErrEmailTaken.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user with the given normalized email, or
	// common.ErrorNotFound when no such user exists.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateName sets the display name and bumps updated_at, returning the
	// updated record.
	UpdateName(ctx context.Context, userID string, name string) (*models.User, error)

	// Count returns the total number of registered users.
	Count(ctx context.Context) (int64, error)

	// Recent returns up to limit users ordered newest-first.
	Recent(ctx context.Context, limit int) ([]models.RecentUser, error)
}
