package models

import "time"

// Session is one issued login token bound to a user. Repeated logins
// accumulate rows. Expired rows are not deleted automatically; the liveness
// query filters them out by expiry.
type Session struct {
	ID        int64
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionUser is a live session joined with its owner, produced by the
// per-request liveness lookup.
type SessionUser struct {
	SessionID int64
	ExpiresAt time.Time
	UserID    string
	Email     string
	Name      *string
}
