// Package httpserver composes the site, API and infrastructure routes and
// runs the HTTP server.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/httpx"
	"github.com/dmitrijs2005/hasker/internal/server/metrics"
	"github.com/dmitrijs2005/hasker/internal/server/rest"
	"github.com/dmitrijs2005/hasker/internal/server/storage"
	"github.com/dmitrijs2005/hasker/internal/server/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type HTTPServer struct {
	address         string
	handler         http.Handler
	logger          logging.Logger
	shutdownTimeout time.Duration
}

// Options carries the pieces NewRouter mounts.
type Options struct {
	API *rest.Handler
	Web *web.Handler
	// Media serves uploaded files; nil when they live in object storage.
	Media *storage.LocalStorage
	// Ping reports store health for /health.
	Ping func(ctx context.Context) error
}

// NewRouter mounts the API under rest.Prefix, the site at the root and the
// infrastructure routes next to them.
func NewRouter(log logging.Logger, opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ping != nil {
			if err := opts.Ping(r.Context()); err != nil {
				log.Error(r.Context(), "health check failed", "error", err)
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, map[string]string{"status": "unavailable"})
				return
			}
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	if opts.Media != nil {
		fs := http.StripPrefix(storage.MediaURLPrefix, http.FileServer(http.Dir(opts.Media.Root())))
		r.Handle(storage.MediaURLPrefix+"*", fs)
	}

	if opts.API != nil {
		r.Mount(rest.Prefix, opts.API.Routes())
	}
	if opts.Web != nil {
		r.Mount("/", opts.Web.Routes())
	}
	return r
}

func NewHTTPServer(address string, handler http.Handler, l logging.Logger, shutdownTimeout time.Duration) *HTTPServer {
	return &HTTPServer{
		address:         address,
		handler:         handler,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
