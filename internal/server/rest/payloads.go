package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/services"
	"github.com/go-chi/render"
)

// Prefix is where the API router is mounted.
const Prefix = "/api/v1"

func questionURL(id string) string { return Prefix + "/questions/" + id }

// --- requests ---

type RegisterRequest struct {
	services.RegisterInput
}

func (p *RegisterRequest) Bind(r *http.Request) error {
	return services.Validate(p.RegisterInput)
}

type LoginRequest struct {
	UserName string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (p *LoginRequest) Bind(r *http.Request) error {
	return services.Validate(p)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (p *RefreshRequest) Bind(r *http.Request) error {
	return services.Validate(p)
}

type AskRequest struct {
	services.AskInput
}

func (p *AskRequest) Bind(r *http.Request) error {
	return services.Validate(p.AskInput)
}

type AnswerRequest struct {
	services.AnswerInput
}

func (p *AnswerRequest) Bind(r *http.Request) error {
	return services.Validate(p.AnswerInput)
}

type ProfileRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (p *ProfileRequest) Bind(r *http.Request) error {
	return services.Validate(p)
}

// voteValue reads the vote direction from a JSON body {"value": true} or a
// form field value=true. Anything else is a down-vote.
func voteValue(r *http.Request) bool {
	if render.GetContentType(r.Header.Get("Content-Type")) == render.ContentTypeJSON {
		var body struct {
			Value any `json:"value"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			return false
		}
		switch v := body.Value.(type) {
		case bool:
			return v
		case string:
			return v == "true"
		}
		return false
	}
	return r.FormValue("value") == "true"
}

// --- responses ---

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func NewTokenResponse(p *services.TokenPair) *TokenResponse {
	return &TokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: common.AuthorizationScheme}
}

func (rd *TokenResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type QuestionResponse struct {
	ID           string    `json:"pk"`
	Title        string    `json:"title"`
	Text         string    `json:"text"`
	Author       string    `json:"author"`
	Slug         string    `json:"slug"`
	Rating       int       `json:"rating"`
	PubDate      time.Time `json:"pub_date"`
	Tags         []string  `json:"tags"`
	HasAnswer    bool      `json:"has_answer"`
	Accepted     *string   `json:"accepted_answer"`
	AnswersCount int       `json:"answers_count"`
	Answers      string    `json:"answers"`
}

func NewQuestionResponse(q *models.Question) *QuestionResponse {
	tags := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		tags = append(tags, t.Name)
	}
	return &QuestionResponse{
		ID:           q.ID,
		Title:        q.Title,
		Text:         q.Body,
		Author:       q.AuthorName,
		Slug:         q.Slug,
		Rating:       q.Rating,
		PubDate:      q.CreatedAt,
		Tags:         tags,
		HasAnswer:    q.HasAnswer(),
		Accepted:     q.AcceptedAnswerID,
		AnswersCount: q.AnswersCount,
		Answers:      questionURL(q.ID) + "/answers",
	}
}

func (rd *QuestionResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// QuestionListItem is the short form used in listings.
type QuestionListItem struct {
	ID     string `json:"pk"`
	Title  string `json:"title"`
	Rating int    `json:"rating"`
	URL    string `json:"url"`
}

func NewQuestionListItem(q *models.Question) *QuestionListItem {
	return &QuestionListItem{ID: q.ID, Title: q.Title, Rating: q.Rating, URL: questionURL(q.ID)}
}

func (rd *QuestionListItem) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type AnswerResponse struct {
	ID         string    `json:"pk"`
	Question   string    `json:"question"`
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	Rating     int       `json:"rating"`
	PubDate    time.Time `json:"pub_date"`
	IsAccepted bool      `json:"is_accepted"`
}

func NewAnswerResponse(a *models.Answer, accepted bool) *AnswerResponse {
	return &AnswerResponse{
		ID:         a.ID,
		Question:   questionURL(a.QuestionID),
		Author:     a.AuthorName,
		Text:       a.Body,
		Rating:     a.Rating,
		PubDate:    a.CreatedAt,
		IsAccepted: accepted,
	}
}

func (rd *AnswerResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type TagResponse struct {
	ID        string `json:"pk"`
	Name      string `json:"name"`
	Questions string `json:"questions"`
}

func (rd *TagResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type UserResponse struct {
	UserName   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	Avatar     string    `json:"avatar"`
	DateJoined time.Time `json:"date_joined"`
}

func (rd *UserResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type VoteResponse struct {
	Rating int  `json:"rating"`
	Vote   bool `json:"vote"`
}

func (rd *VoteResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type MarkResponse struct {
	Success bool `json:"success"`
}

func (rd *MarkResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// PageResponse wraps one page of a listing with navigation links.
type PageResponse struct {
	Count    int               `json:"count"`
	Page     int               `json:"page"`
	NumPages int               `json:"num_pages"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []render.Renderer `json:"results"`
}

func NewPageResponse[T any](r *http.Request, p models.Page[T], item func(*T) render.Renderer) *PageResponse {
	results := make([]render.Renderer, 0, len(p.Items))
	for i := range p.Items {
		results = append(results, item(&p.Items[i]))
	}

	resp := &PageResponse{
		Count:    p.Total,
		Page:     p.Page,
		NumPages: p.NumPages(),
		Results:  results,
	}
	if p.HasNext() {
		u := pageLink(r, p.Page+1)
		resp.Next = &u
	}
	if p.HasPrev() {
		u := pageLink(r, p.Page-1)
		resp.Previous = &u
	}
	return resp
}

func pageLink(r *http.Request, page int) string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

func (rd *PageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	for _, item := range rd.Results {
		if err := item.Render(w, r); err != nil {
			return err
		}
	}
	return nil
}

var errNoFile = errors.New("avatar file is required")
