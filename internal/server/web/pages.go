package web

import (
	"net/http"

	"github.com/dmitrijs2005/hasker/internal/server/httpx"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type listData struct {
	Sort  models.Sort
	Page  models.Page[models.Question]
	Pager pager
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.PageParams(r)
	sort := models.ParseSort(r.URL.Query().Get("sort"))

	res, err := h.svc.Questions.List(r.Context(), sort, h.svc.Questions.PageRequest(page, size))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	title := "New questions"
	if sort == models.SortPopular {
		title = "Hot questions"
	}
	h.render(w, r, http.StatusOK, "index.html", title, listData{Sort: sort, Page: res, Pager: newPager(r, res)})
}

type searchData struct {
	Search models.SearchQuery
	Page   models.Page[models.Question]
	Pager  pager
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	page, size := httpx.PageParams(r)

	sq, res, err := h.svc.Questions.Search(r.Context(), r.URL.Query().Get("q"), h.svc.Questions.PageRequest(page, size))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "search.html", "Search results", searchData{Search: sq, Page: res, Pager: newPager(r, res)})
}

type questionData struct {
	Question *models.Question
	Answers  models.Page[models.Answer]
	Pager    pager
	CanMark  bool
	Text     string
	Error    string
}

func (h *Handler) Question(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Questions.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderQuestion(w, r, q, questionData{})
}

func (h *Handler) renderQuestion(w http.ResponseWriter, r *http.Request, q *models.Question, data questionData) {
	page, size := httpx.PageParams(r)
	answers, err := h.svc.Answers.List(r.Context(), q.ID, h.svc.Answers.PageRequest(page, size))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user := httpx.UserFrom(r.Context())
	data.Question = q
	data.Answers = answers
	data.Pager = newPager(r, answers)
	data.CanMark = user != nil && user.ID == q.AuthorID
	h.render(w, r, http.StatusOK, "question.html", q.Title, data)
}

func (h *Handler) PostAnswer(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Questions.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	in := services.AnswerInput{Body: r.FormValue("text")}
	if _, err := h.svc.Answers.Post(r.Context(), q, httpx.UserFrom(r.Context()), in); err != nil {
		msg, ok := formError(err)
		if !ok {
			h.fail(w, r, err)
			return
		}
		h.renderQuestion(w, r, q, questionData{Text: in.Body, Error: msg})
		return
	}
	http.Redirect(w, r, questionURL(q), http.StatusFound)
}

type askData struct {
	Title string
	Text  string
	Tags  string
	Error string
}

func (h *Handler) AskForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "ask.html", "Ask a question", askData{})
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	in := services.AskInput{
		Title: r.FormValue("title"),
		Body:  r.FormValue("text"),
		Tags:  r.FormValue("tags"),
	}

	q, err := h.svc.Questions.Ask(r.Context(), httpx.UserFrom(r.Context()).ID, in)
	if err != nil {
		msg, ok := formError(err)
		if !ok {
			h.fail(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, "ask.html", "Ask a question", askData{Title: in.Title, Text: in.Body, Tags: in.Tags, Error: msg})
		return
	}
	http.Redirect(w, r, questionURL(q), http.StatusFound)
}
