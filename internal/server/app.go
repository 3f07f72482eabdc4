// Package server initializes and runs the Hasker application server.
// It opens and migrates the database, selects the storage and mail
// backends, wires the services and serves the site and API over HTTP
// until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/dmitrijs2005/hasker/internal/server/httpserver"
	"github.com/dmitrijs2005/hasker/internal/server/httpx"
	"github.com/dmitrijs2005/hasker/internal/server/mail"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hasker/internal/server/rest"
	"github.com/dmitrijs2005/hasker/internal/server/services"
	"github.com/dmitrijs2005/hasker/internal/server/storage"
	"github.com/dmitrijs2005/hasker/internal/server/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/docgen"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	services *services.Services
	router   chi.Router
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	db, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	st, err := storage.New(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	svc := services.New(db, rm, st, mail.New(c, logger), c, logger)

	router, err := newRouter(c, logger, svc, st, db.PingContext)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{config: c, logger: logger, db: db, services: svc, router: router}, nil
}

func newRouter(c *config.Config, logger logging.Logger, svc *services.Services, st storage.Storage, ping func(context.Context) error) (chi.Router, error) {
	limiter := httpx.NewRateLimiter(c.LoginRateLimit, c.LoginRateBurst)

	site, err := web.NewHandler(svc, logger, limiter.Middleware, c)
	if err != nil {
		return nil, err
	}

	opts := httpserver.Options{
		API:  rest.NewHandler(svc, logger, limiter.Middleware, c.AvatarMaxSize),
		Web:  site,
		Ping: ping,
	}
	if local, ok := st.(*storage.LocalStorage); ok {
		opts.Media = local
	}
	return httpserver.NewRouter(logger, opts), nil
}

// RoutesDoc renders the route tree as Markdown without touching the
// database.
func RoutesDoc(c *config.Config) (string, error) {
	st, err := storage.NewLocalStorage(os.TempDir(), storage.MediaURLPrefix)
	if err != nil {
		return "", err
	}
	r, err := newRouter(c, logging.Nop(), &services.Services{}, st, nil)
	if err != nil {
		return "", err
	}
	return docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
		ProjectPath: "github.com/dmitrijs2005/hasker",
		Intro:       "Hasker HTTP routes.",
	}), nil
}

// Run serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts the server down and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	if n, err := app.services.Users.PurgeExpiredTokens(ctx); err != nil {
		app.logger.Warn(ctx, "expired refresh tokens not purged", "error", err)
	} else if n > 0 {
		app.logger.Info(ctx, "expired refresh tokens purged", "count", n)
	}

	srv := httpserver.NewHTTPServer(app.config.HTTPAddr, app.router, app.logger, app.config.ShutdownTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
