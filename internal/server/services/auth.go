// Package services contains server-side business logic. This file implements
// AuthService: registration, login, logout, per-request authentication,
// profile updates, and operator stats.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/brestid/internal/common"
	"github.com/dmitrijs2005/brestid/internal/cryptox"
	"github.com/dmitrijs2005/brestid/internal/server/auth"
	"github.com/dmitrijs2005/brestid/internal/server/config"
	"github.com/dmitrijs2005/brestid/internal/server/models"
	"github.com/dmitrijs2005/brestid/internal/server/repositories/repomanager"
)

// LoginResult bundles the signed token, its expiry, and the public user view.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.PublicUser
}

// AdminStats is the operator-facing counters snapshot.
type AdminStats struct {
	Users          int64
	ActiveSessions int64
	RecentUsers    []models.RecentUser
}

// AuthService provides the authentication core:
// - Register: validate input and create users
// - Login: verify credentials, sign a token, persist its session row
// - Authenticate: the combined token-signature and session-liveness check
// - Logout: revoke a session
// - UpdateProfile / Stats: thin delegations to the repositories
type AuthService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	jwtSecret     []byte
	tokenValidity time.Duration
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:            db,
		repomanager:   m,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	minPasswordLength = 6
	minNameLength     = 2
	recentUsersLimit  = 10
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateRegistration checks input shape before any storage call. The name
// is optional but must have at least two characters when present.
func validateRegistration(email, password, name string) error {
	ve := &common.ValidationError{}

	if !emailPattern.MatchString(email) {
		ve.Add("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		ve.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if name != "" && utf8.RuneCountInString(name) < minNameLength {
		ve.Add("name", fmt.Sprintf("must be at least %d characters", minNameLength))
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// Register creates a new user. The email is normalized before the uniqueness
// check; the raw password is hashed and never stored or logged. The returned
// view carries no hash.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.PublicUser, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validateRegistration(email, password, name); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	// Fast pre-check for a friendly error. The unique index remains the
	// source of truth when two registrations race past this point.
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: hash}
	if name != "" {
		user.Name = sql.NullString{String: name, Valid: true}
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return created.Public(), nil
}

// Login verifies the credentials and, on success, signs a token and persists
// its session row. An unknown email and a wrong password are deliberately
// indistinguishable to the caller. The token is only handed out after the
// session row exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	if !cryptox.VerifyPassword(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenValidity)
	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, fmt.Errorf("error signing token: %w", err)
	}

	if err := s.repomanager.Sessions(s.db).Create(ctx, user.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}

// Logout revokes the session for the given token. Deleting a token that has
// no session row is not an error, so repeated logouts succeed.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrMissingToken
	}

	if err := s.repomanager.Sessions(s.db).DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token into the caller's identity. The token
// must both have a live session row and verify under the signing secret;
// either check failing is reported as ErrInvalidOrExpiredToken, so callers
// cannot tell which one rejected it. A verifying token alone is never
// sufficient: logout and expiry revoke access even though the stateless
// signature would still check out.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}

	su, err := s.repomanager.Sessions(s.db).FindActiveWithUser(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("error resolving session: %w", err)
	}

	if _, err := auth.ParseToken(token, s.jwtSecret); err != nil {
		return nil, common.ErrInvalidOrExpiredToken
	}

	// Identity comes from the joined users row, not token claims, so
	// profile updates apply immediately to existing sessions.
	return &models.Identity{ID: su.UserID, Email: su.Email, Name: su.Name}, nil
}

// UpdateProfile changes the caller's display name and returns the updated
// public view.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name string) (*models.PublicUser, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minNameLength {
		ve := &common.ValidationError{}
		ve.Add("name", fmt.Sprintf("must be at least %d characters", minNameLength))
		return nil, ve
	}

	user, err := s.repomanager.Users(s.db).UpdateName(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	return user.Public(), nil
}

// Stats returns the user count, the count of currently active sessions, and
// the most recent registrations, newest first.
func (s *AuthService) Stats(ctx context.Context) (*AdminStats, error) {
	usersRepo := s.repomanager.Users(s.db)
	sessionsRepo := s.repomanager.Sessions(s.db)

	userCount, err := usersRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}

	activeSessions, err := sessionsRepo.CountActive(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("error counting sessions: %w", err)
	}

	recent, err := usersRepo.Recent(ctx, recentUsersLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing recent users: %w", err)
	}

	return &AdminStats{Users: userCount, ActiveSessions: activeSessions, RecentUsers: recent}, nil
}

// PruneSessions deletes session rows whose expiry has passed and reports how
// many were removed. Nothing calls this automatically; it backs the operator
// CLI. Expired rows are otherwise filtered out at query time only.
func (s *AuthService) PruneSessions(ctx context.Context) (int64, error) {
	deleted, err := s.repomanager.Sessions(s.db).DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("error pruning sessions: %w", err)
	}
	return deleted, nil
}
