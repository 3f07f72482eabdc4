// Package repomanager vends repository implementations bound to a database
// handle or transaction, and runs the embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/answers"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/questions"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/tags"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/users"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/votes"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Questions(db dbx.DBTX) questions.Repository
	Answers(db dbx.DBTX) answers.Repository
	Tags(db dbx.DBTX) tags.Repository
	Votes(db dbx.DBTX) votes.Repository
}
