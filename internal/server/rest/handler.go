// Package rest serves the JSON API under /api/v1.
package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/httpx"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type ctxKey int8

const (
	ctxKeyQuestion ctxKey = iota
	ctxKeyAnswer
)

type Handler struct {
	svc           *services.Services
	log           logging.Logger
	authLimiter   func(http.Handler) http.Handler
	maxUploadSize int64
}

// NewHandler builds the API handler. authLimiter wraps the register, login
// and refresh routes.
func NewHandler(svc *services.Services, log logging.Logger, authLimiter func(http.Handler) http.Handler, maxUploadSize int64) *Handler {
	if authLimiter == nil {
		authLimiter = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		svc:           svc,
		log:           log.With("module", "rest"),
		authLimiter:   authLimiter,
		maxUploadSize: maxUploadSize,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.BearerAuth)

	r.Get("/", h.Root)

	r.Route("/auth", func(r chi.Router) {
		r.Use(h.authLimiter)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})

	r.Route("/questions", func(r chi.Router) {
		r.Get("/", h.ListQuestions)
		r.With(RequireUser).Post("/", h.Ask)

		r.Route("/{questionID}", func(r chi.Router) {
			r.Use(h.QuestionCtx)
			r.Get("/", h.GetQuestion)
			r.With(RequireUser).Delete("/", h.DeleteQuestion)
			r.Get("/answers", h.ListAnswers)
			r.With(RequireUser).Post("/answers", h.PostAnswer)
			r.With(RequireUser).Post("/vote", h.VoteQuestion)
		})
	})

	r.Route("/answers/{answerID}", func(r chi.Router) {
		r.Use(h.AnswerCtx)
		r.Get("/", h.GetAnswer)
		r.With(RequireUser).Delete("/", h.DeleteAnswer)
		r.With(RequireUser).Post("/vote", h.VoteAnswer)
		r.With(RequireUser).Post("/mark", h.MarkAnswer)
	})

	r.Get("/tags", h.ListTags)
	r.Get("/tags/{tagID}/questions", h.TagQuestions)
	r.Get("/search", h.Search)
	r.Get("/trending", h.Trending)
	r.Get("/users/{username}", h.GetUser)

	r.Route("/profile", func(r chi.Router) {
		r.Use(RequireUser)
		r.Get("/", h.GetProfile)
		r.Put("/", h.UpdateProfile)
		r.Post("/avatar", h.UploadAvatar)
		r.Delete("/avatar", h.DeleteAvatar)
	})

	return r
}

// --- middleware ---

// BearerAuth resolves "Authorization: Bearer <token>" to the request user.
// Requests without the header stay anonymous; a bad token is rejected.
func (h *Handler) BearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, common.AuthorizationScheme+" ")
		if !ok || token == "" {
			h.renderErr(w, r, ErrUnauthorized)
			return
		}

		user, err := h.svc.Users.Authenticate(r.Context(), token)
		if err != nil {
			h.renderErr(w, r, ErrFromService(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(httpx.WithUser(r.Context(), user)))
	})
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpx.UserFrom(r.Context()) == nil {
			_ = render.Render(w, r, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// QuestionCtx loads the question named by the URL onto the context.
func (h *Handler) QuestionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, err := h.svc.Questions.GetByID(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			h.renderErr(w, r, ErrFromService(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyQuestion, q)))
	})
}

func (h *Handler) AnswerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := h.svc.Answers.Get(r.Context(), chi.URLParam(r, "answerID"))
		if err != nil {
			h.renderErr(w, r, ErrFromService(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyAnswer, a)))
	})
}

func questionFrom(r *http.Request) *models.Question {
	return r.Context().Value(ctxKeyQuestion).(*models.Question)
}

func answerFrom(r *http.Request) *models.Answer {
	return r.Context().Value(ctxKeyAnswer).(*models.Answer)
}

func (h *Handler) renderErr(w http.ResponseWriter, r *http.Request, rd render.Renderer) {
	if e, ok := rd.(*ErrResponse); ok && e.HTTPStatusCode >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", e.Err)
	}
	if err := render.Render(w, r, rd); err != nil {
		h.log.Error(r.Context(), "render error", "error", err)
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, rd render.Renderer) {
	render.Status(r, status)
	if err := render.Render(w, r, rd); err != nil {
		h.log.Error(r.Context(), "render error", "error", err)
	}
}

// --- root ---

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"questions": Prefix + "/questions",
		"trending":  Prefix + "/trending",
		"search":    Prefix + "/search",
		"tags":      Prefix + "/tags",
	})
}

// --- auth ---

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	data := &RegisterRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, ErrInvalidRequest(err))
		return
	}

	user, err := h.svc.Users.Register(r.Context(), data.RegisterInput)
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusCreated, h.userResponse(r.Context(), user, true))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	data := &LoginRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, ErrInvalidRequest(err))
		return
	}

	pair, _, err := h.svc.Users.Login(r.Context(), data.UserName, data.Password)
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, NewTokenResponse(pair))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	data := &RefreshRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, ErrInvalidRequest(err))
		return
	}

	pair, err := h.svc.Users.RefreshToken(r.Context(), data.RefreshToken)
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, NewTokenResponse(pair))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	data := &RefreshRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, ErrInvalidRequest(err))
		return
	}
	if err := h.svc.Users.Logout(r.Context(), data.RefreshToken); err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- questions ---

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.PageParams(r)
	sort := models.ParseSort(r.URL.Query().Get("sort"))

	res, err := h.svc.Questions.List(r.Context(), sort, h.svc.Questions.PageRequest(page, size))
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, NewPageResponse(r, res, questionItem))
}

func questionItem(q *models.Question) render.Renderer { return NewQuestionListItem(q) }

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	data := &AskRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, ErrInvalidRequest(err))
		return
	}

	user := httpx.UserFrom(r.Context())
	q, err := h.svc.Questions.Ask(r.Context(), user.ID, data.AskInput)
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	q.AuthorName = user.UserName
	h.respond(w, r, http.StatusCreated, NewQuestionResponse(q))
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, NewQuestionResponse(questionFrom(r)))
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	user := httpx.UserFrom(r.Context())
	if err := h.svc.Questions.Delete(r.Context(), questionFrom(r), user.ID); err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	q := questionFrom(r)
	page, size := httpx.PageParams(r)

	res, err := h.svc.Answers.List(r.Context(), q.ID, h.svc.Answers.PageRequest(page, size))
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, NewPageResponse(r, res, func(a *models.Answer) render.Renderer {
		return NewAnswerResponse(a, q.IsAccepted(a.ID))
	}))
}

func (h *Handler) PostAnswer(w http.ResponseWriter, r *http.Request) {
	data := &AnswerRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, ErrInvalidRequest(err))
		return
	}

	a, err := h.svc.Answers.Post(r.Context(), questionFrom(r), httpx.UserFrom(r.Context()), data.AnswerInput)
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusCreated, NewAnswerResponse(a, false))
}

func (h *Handler) VoteQuestion(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, questionFrom(r))
}

// --- answers ---

func (h *Handler) GetAnswer(w http.ResponseWriter, r *http.Request) {
	a := answerFrom(r)
	q, err := h.svc.Questions.GetByID(r.Context(), a.QuestionID)
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, NewAnswerResponse(a, q.IsAccepted(a.ID)))
}

func (h *Handler) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	user := httpx.UserFrom(r.Context())
	if err := h.svc.Answers.Delete(r.Context(), answerFrom(r), user.ID); err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) VoteAnswer(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, answerFrom(r))
}

func (h *Handler) MarkAnswer(w http.ResponseWriter, r *http.Request) {
	user := httpx.UserFrom(r.Context())
	ok, err := h.svc.Answers.MarkAccepted(r.Context(), answerFrom(r), user.ID)
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, &MarkResponse{Success: ok})
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request, target models.Votable) {
	user := httpx.UserFrom(r.Context())
	res, err := h.svc.Votes.CastVote(r.Context(), target, user.ID, voteValue(r))
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusCreated, &VoteResponse{Rating: res.Rating, Vote: res.Changed})
}

// --- tags, search, trending ---

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.PageParams(r)
	res, err := h.svc.Questions.Tags(r.Context(), page, size)
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, NewPageResponse(r, res, func(t *models.Tag) render.Renderer {
		return &TagResponse{ID: t.ID, Name: t.Name, Questions: Prefix + "/tags/" + t.ID + "/questions"}
	}))
}

func (h *Handler) TagQuestions(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.PageParams(r)
	res, err := h.svc.Questions.ListByTag(r.Context(), chi.URLParam(r, "tagID"), h.svc.Questions.PageRequest(page, size))
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, NewPageResponse(r, res, questionItem))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.PageParams(r)
	_, res, err := h.svc.Questions.Search(r.Context(), r.URL.Query().Get("q"), h.svc.Questions.PageRequest(page, size))
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, NewPageResponse(r, res, questionItem))
}

func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Questions.Trending(r.Context())
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	list := make([]render.Renderer, 0, len(items))
	for i := range items {
		list = append(list, NewQuestionListItem(&items[i]))
	}
	if err := render.RenderList(w, r, list); err != nil {
		h.log.Error(r.Context(), "render error", "error", err)
	}
}

// --- users ---

func (h *Handler) userResponse(ctx context.Context, u *models.User, withEmail bool) *UserResponse {
	resp := &UserResponse{
		UserName:   u.UserName,
		Avatar:     h.svc.Users.AvatarURL(ctx, u),
		DateJoined: u.CreatedAt,
	}
	if withEmail {
		resp.Email = u.Email
	}
	return resp
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.GetByUserName(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	me := httpx.UserFrom(r.Context())
	h.respond(w, r, http.StatusOK, h.userResponse(r.Context(), u, me != nil && me.ID == u.ID))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, h.userResponse(r.Context(), httpx.UserFrom(r.Context()), true))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	data := &ProfileRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, ErrInvalidRequest(err))
		return
	}

	user := httpx.UserFrom(r.Context())
	if err := h.svc.Users.UpdateEmail(r.Context(), user, data.Email); err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, h.userResponse(r.Context(), user, true))
}

// UploadAvatar takes a multipart form with the image in the "avatar" field.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	up, err := readAvatar(w, r, h.maxUploadSize)
	if err != nil {
		h.renderErr(w, r, ErrInvalidRequest(err))
		return
	}

	user := httpx.UserFrom(r.Context())
	if err := h.svc.Users.UpdateAvatar(r.Context(), user, up); err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, h.userResponse(r.Context(), user, true))
}

func (h *Handler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user := httpx.UserFrom(r.Context())
	if err := h.svc.Users.ClearAvatar(r.Context(), user); err != nil {
		h.renderErr(w, r, ErrFromService(err))
		return
	}
	h.respond(w, r, http.StatusOK, h.userResponse(r.Context(), user, true))
}

// readAvatar reads the "avatar" file of a multipart request. The body is
// capped a little above limit so oversize files still reach the size check.
func readAvatar(w http.ResponseWriter, r *http.Request, limit int64) (services.AvatarUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return services.AvatarUpload{}, errNoFile
		}
		return services.AvatarUpload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return services.AvatarUpload{}, err
	}
	return services.AvatarUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
