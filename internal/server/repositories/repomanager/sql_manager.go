package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/dmitrijs2005/hasker/internal/server/migrations"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/answers"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/questions"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/tags"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/users"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/votes"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager vends the SQL repository implementations, which run
// unchanged on PostgreSQL and SQLite, and migrates the schema with goose.
type SQLRepositoryManager struct {
	dialect string
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

// RefreshTokens returns a refreshtokens.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Questions(db dbx.DBTX) questions.Repository {
	return questions.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Answers(db dbx.DBTX) answers.Repository {
	return answers.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Tags(db dbx.DBTX) tags.Repository {
	return tags.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Votes(db dbx.DBTX) votes.Repository {
	return votes.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewRepositoryManager constructs a RepositoryManager for the given
// database driver name ("pgx" or "sqlite").
func NewRepositoryManager(driver string) (RepositoryManager, error) {
	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLRepositoryManager{dialect: dialect}, nil
}

func dialectFor(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres:
		return "postgres", nil
	case config.DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open opens and pings a database with the given driver and DSN. SQLite
// handles are limited to a single connection, so in-memory databases are
// shared and writers never contend for the file lock.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if _, err := dialectFor(driver); err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
