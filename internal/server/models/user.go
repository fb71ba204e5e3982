// Package models holds the persistent and externally visible data shapes of
// the identity service.
package models

import (
	"database/sql"
	"time"
)

// User is the stored credential record. PasswordHash never leaves the
// repository/service layer; external views are built with Public.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the externally visible projection of a User.
type PublicUser struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Public returns the external view of the user, with the nullable display
// name mapped to a pointer.
func (u *User) Public() *PublicUser {
	p := &PublicUser{ID: u.ID, Email: u.Email}
	if u.Name.Valid {
		name := u.Name.String
		p.Name = &name
	}
	return p
}

// Identity is the resolved caller identity attached to an authenticated
// request. It always reflects the current users row, not token claims.
type Identity struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// RecentUser is one row of the admin stats newest-registrations listing.
type RecentUser struct {
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
