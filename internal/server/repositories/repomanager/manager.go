// Package repomanager vends repositories bound to a database handle or a
// transaction, and owns schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dailybread/internal/dbx"
	"github.com/dmitrijs2005/dailybread/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/dailybread/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dailybread/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Preferences(db dbx.DBTX) preferences.Repository
}
