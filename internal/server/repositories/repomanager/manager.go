// Package repomanager vends repository implementations bound to a database
// handle and exposes the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/brestid/internal/dbx"
	"github.com/dmitrijs2005/brestid/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/brestid/internal/server/repositories/users"
)

// RepositoryManager abstracts the storage backend for the auth core. The
// per-call DBTX argument lets a service run a repository against either the
// shared pool or a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
