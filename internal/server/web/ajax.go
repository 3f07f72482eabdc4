package web

import (
	"net/http"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/server/httpx"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ajaxError answers an AJAX call with status and a JSON detail. Anonymous
// callers get 403 here, not a login redirect.
func (h *Handler) ajaxError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpx.StatusFor(err)
	if status == http.StatusUnauthorized {
		status = http.StatusForbidden
	}
	if status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "ajax request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"detail": http.StatusText(status)})
}

func (h *Handler) VoteQuestion(w http.ResponseWriter, r *http.Request) {
	if httpx.UserFrom(r.Context()) == nil {
		h.ajaxError(w, r, common.ErrorForbidden)
		return
	}
	q, err := h.svc.Questions.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.ajaxError(w, r, err)
		return
	}
	h.vote(w, r, q)
}

func (h *Handler) VoteAnswer(w http.ResponseWriter, r *http.Request) {
	if httpx.UserFrom(r.Context()) == nil {
		h.ajaxError(w, r, common.ErrorForbidden)
		return
	}
	a, err := h.svc.Answers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.ajaxError(w, r, err)
		return
	}
	h.vote(w, r, a)
}

// vote reads the form field value: "true" is an up-vote, anything else a
// down-vote.
func (h *Handler) vote(w http.ResponseWriter, r *http.Request, target models.Votable) {
	user := httpx.UserFrom(r.Context())
	res, err := h.svc.Votes.CastVote(r.Context(), target, user.ID, r.FormValue("value") == "true")
	if err != nil {
		h.ajaxError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]int{"rating": res.Rating})
}

func (h *Handler) MarkAnswer(w http.ResponseWriter, r *http.Request) {
	user := httpx.UserFrom(r.Context())
	if user == nil {
		h.ajaxError(w, r, common.ErrorForbidden)
		return
	}
	a, err := h.svc.Answers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.ajaxError(w, r, err)
		return
	}

	ok, err := h.svc.Answers.MarkAccepted(r.Context(), a, user.ID)
	if err != nil {
		h.ajaxError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"success": ok})
}
