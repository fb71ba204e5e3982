// Package sessions declares the server-side repository contract for issued
// session tokens in persistent storage.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/brestid/internal/server/models"
)

// Repository defines operations for persisting, resolving, and revoking
// sessions. A session is live while its expires_at is in the future; expired
// rows stay in the table and are filtered out at query time.
type Repository interface {
	// Create stores a new session row for userID expiring at expiresAt.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// FindActiveWithUser resolves a token to its session joined with the
	// owning user, restricted to sessions with expires_at > now. This is the
	// hot path hit on every authenticated request. Absent or expired
	// sessions yield common.ErrorNotFound.
	FindActiveWithUser(ctx context.Context, token string, now time.Time) (*models.SessionUser, error)

	// DeleteByToken removes a session by its token string. Deleting a
	// non-existent token is not an error.
	DeleteByToken(ctx context.Context, token string) error

	// CountActive returns the number of sessions with expires_at > now.
	CountActive(ctx context.Context, now time.Time) (int64, error)

	// DeleteExpired removes sessions with expires_at <= now and returns how
	// many rows were deleted. Nothing calls this automatically; it backs
	// operator cleanup tooling.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
