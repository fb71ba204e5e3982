// Package common defines shared constants and sentinel errors used across
// Brest ID components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Registration errors.
	ErrEmailTaken = errors.New("email already registered")

	// Credential errors. An unknown email and a wrong password both map
	// here, so a caller cannot tell which check rejected the login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token lifecycle errors. ErrInvalidOrExpiredToken uniformly covers
	// expired sessions, deleted sessions, and signature failures.
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrMissingToken          = errors.New("missing token")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
)
