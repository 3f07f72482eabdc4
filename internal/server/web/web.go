// Package web serves the HTML site and its AJAX endpoints.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/dmitrijs2005/hasker/internal/server/httpx"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/services"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = []string{
	"index.html",
	"search.html",
	"question.html",
	"ask.html",
	"login.html",
	"signup.html",
	"profile.html",
	"settings.html",
	"error.html",
}

var funcs = template.FuncMap{
	"since": func(t time.Time) string { return humanize.Time(t) },
	"tagURL": func(name string) string {
		return "/search?q=" + url.QueryEscape("tag:"+name)
	},
	"questionURL": func(q models.Question) string { return questionURL(&q) },
}

func questionURL(q *models.Question) string {
	return "/question/" + url.PathEscape(q.Slug)
}

type Handler struct {
	svc           *services.Services
	log           logging.Logger
	authLimiter   func(http.Handler) http.Handler
	templates     map[string]*template.Template
	secureCookies bool
	accessTTL     time.Duration
	refreshTTL    time.Duration
	maxUploadSize int64
}

// NewHandler parses the embedded templates. authLimiter wraps the login
// and signup form posts.
func NewHandler(svc *services.Services, log logging.Logger, authLimiter func(http.Handler) http.Handler, cfg *config.Config) (*Handler, error) {
	if authLimiter == nil {
		authLimiter = func(next http.Handler) http.Handler { return next }
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templatesFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = t
	}

	return &Handler{
		svc:           svc,
		log:           log.With("module", "web"),
		authLimiter:   authLimiter,
		templates:     templates,
		secureCookies: strings.HasPrefix(cfg.BaseURL, "https://"),
		accessTTL:     cfg.AccessTokenValidityDuration,
		refreshTTL:    cfg.RefreshTokenValidityDuration,
		maxUploadSize: cfg.AvatarMaxSize,
	}, nil
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.Session)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", h.Index)
	r.Get("/search", h.Search)
	r.Get("/question/{slug}", h.Question)
	r.With(h.RequireLogin).Post("/question/{slug}", h.PostAnswer)
	r.With(h.RequireLogin).Get("/ask", h.AskForm)
	r.With(h.RequireLogin).Post("/ask", h.Ask)

	r.Post("/vote/question/{id}", h.VoteQuestion)
	r.Post("/vote/answer/{id}", h.VoteAnswer)
	r.Post("/mark/answer/{id}", h.MarkAnswer)

	r.Route("/account", func(r chi.Router) {
		r.Get("/login", h.LoginForm)
		r.With(h.authLimiter).Post("/login", h.Login)
		r.Get("/signup", h.SignupForm)
		r.With(h.authLimiter).Post("/signup", h.Signup)
		r.Post("/logout", h.Logout)
		r.Get("/profile/{username}", h.Profile)
		r.With(h.RequireLogin).Get("/settings", h.SettingsForm)
		r.With(h.RequireLogin).Post("/settings", h.Settings)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusNotFound)
	})
	return r
}

// view is the data every template receives.
type view struct {
	Title    string
	User     *models.User
	Trending []models.Question
	Query    string
	Data     any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	t, ok := h.templates[name]
	if !ok {
		h.log.Error(r.Context(), "unknown template", "name", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trending, err := h.svc.Questions.Trending(r.Context())
	if err != nil {
		h.log.Warn(r.Context(), "trending not loaded", "error", err)
	}

	v := view{
		Title:    title,
		User:     httpx.UserFrom(r.Context()),
		Trending: trending,
		Query:    r.URL.Query().Get("q"),
		Data:     data,
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", v); err != nil {
		h.log.Error(r.Context(), "template error", "name", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int) {
	h.render(w, r, status, "error.html", http.StatusText(status), status)
}

// fail renders the error page matching err. Internal errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httpx.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	h.renderError(w, r, status)
}

// formError returns the user-facing text of a validation error. ok is false
// for any other error.
func formError(err error) (msg string, ok bool) {
	if !errors.Is(err, common.ErrorValidation) {
		return "", false
	}
	return strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": "), true
}

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, msg)
}

// pager holds the navigation links of a listing page.
type pager struct {
	Page     int
	NumPages int
	Prev     string
	Next     string
}

func newPager[T any](r *http.Request, p models.Page[T]) pager {
	pg := pager{Page: p.Page, NumPages: p.NumPages()}
	if p.HasPrev() {
		pg.Prev = pageLink(r, p.Page-1)
	}
	if p.HasNext() {
		pg.Next = pageLink(r, p.Page+1)
	}
	return pg
}

func pageLink(r *http.Request, page int) string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return r.URL.Path + "?" + q.Encode()
}

// safeNext accepts only local paths as redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
