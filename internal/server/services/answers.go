package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/dmitrijs2005/hasker/internal/server/mail"
	"github.com/dmitrijs2005/hasker/internal/server/metrics"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/repomanager"
)

const newAnswerSubject = "You have new answer for your question"

type AnswerInput struct {
	Body string `json:"text" validate:"required"`
}

// AnswerService posts, lists, accepts and deletes answers.
type AnswerService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	mailer          mail.Mailer
	log             logging.Logger
	baseURL         string
	paginateAnswers int
	now             func() time.Time
}

// NewAnswerService constructs an AnswerService using repositories, the mailer and server config.
func NewAnswerService(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer, cfg *config.Config, log logging.Logger) *AnswerService {
	return &AnswerService{
		db:              db,
		repomanager:     m,
		mailer:          mailer,
		log:             log.With("module", "answers"),
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		paginateAnswers: cfg.PaginateAnswers,
		now:             time.Now,
	}
}

func (s *AnswerService) PageRequest(page, size int) models.PageRequest {
	return models.NewPageRequest(page, size, s.paginateAnswers)
}

// Post adds an answer by author to q and notifies the question author by
// e-mail unless they answered themselves. Mail failures are only logged.
func (s *AnswerService) Post(ctx context.Context, q *models.Question, author *models.User, in AnswerInput) (*models.Answer, error) {
	in.Body = strings.TrimSpace(in.Body)
	if err := Validate(in); err != nil {
		return nil, err
	}

	a := &models.Answer{
		QuestionID: q.ID,
		AuthorID:   author.ID,
		AuthorName: author.UserName,
		Body:       in.Body,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repomanager.Answers(s.db).Create(ctx, a); err != nil {
		return nil, fmt.Errorf("error creating answer: %w", err)
	}
	metrics.AnswersCreated.Inc()
	s.log.Info(ctx, "answer posted", "answer_id", a.ID, "question_id", q.ID, "author_id", author.ID)

	if q.AuthorID != author.ID {
		s.notify(ctx, q, author)
	}
	return a, nil
}

// QuestionURL is the absolute address of the question page.
func (s *AnswerService) QuestionURL(q *models.Question) string {
	return s.baseURL + "/question/" + url.PathEscape(q.Slug)
}

func (s *AnswerService) notify(ctx context.Context, q *models.Question, answerer *models.User) {
	owner, err := s.repomanager.Users(s.db).GetByID(ctx, q.AuthorID)
	if err != nil {
		metrics.MailFailures.Inc()
		s.log.Error(ctx, "answer notification: author lookup", "question_id", q.ID, "error", err)
		return
	}

	msg := mail.Message{
		To:      []string{owner.Email},
		Subject: newAnswerSubject,
		Body: fmt.Sprintf("%s answered to your question `%s`.\nYou can read answer by link: %s",
			answerer.UserName, q.Title, s.QuestionURL(q)),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		metrics.MailFailures.Inc()
		s.log.Error(ctx, "answer notification not sent", "question_id", q.ID, "error", err)
	}
}

func (s *AnswerService) Get(ctx context.Context, id string) (*models.Answer, error) {
	return s.repomanager.Answers(s.db).GetByID(ctx, id)
}

// List returns the answers of questionID, most popular first.
func (s *AnswerService) List(ctx context.Context, questionID string, page models.PageRequest) (models.Page[models.Answer], error) {
	items, total, err := s.repomanager.Answers(s.db).ListByQuestion(ctx, questionID, page)
	if err != nil {
		return models.Page[models.Answer]{}, err
	}
	return models.NewPage(items, total, page), nil
}

// MarkAccepted toggles answer as the accepted answer of its question. Only
// the question author may do so, and not on their own answer. Accepting
// another answer replaces the current one. The returned flag is false when
// nothing changed, including when a concurrent call won.
func (s *AnswerService) MarkAccepted(ctx context.Context, answer *models.Answer, requesterID string) (bool, error) {
	var ok bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Questions(tx)
		q, err := repo.GetByID(ctx, answer.QuestionID)
		if err != nil {
			return err
		}

		if q.AuthorID != requesterID || answer.AuthorID == requesterID {
			return nil
		}

		var next *string
		if !q.IsAccepted(answer.ID) {
			id := answer.ID
			next = &id
		}

		ok, err = repo.SetAcceptedAnswer(ctx, q.ID, q.AcceptedAnswerID, next)
		return err
	})

	metrics.AcceptTotal.WithLabelValues(metrics.ResultLabel(ok, err)).Inc()
	if err != nil {
		return false, fmt.Errorf("error marking answer: %w", err)
	}
	s.log.Debug(ctx, "mark answer", "answer_id", answer.ID, "user_id", requesterID, "success", ok)
	return ok, nil
}

// Delete removes answer with its votes and clears it as accepted answer.
// Only the author may delete.
func (s *AnswerService) Delete(ctx context.Context, answer *models.Answer, requesterID string) error {
	if answer.AuthorID != requesterID {
		return common.ErrorForbidden
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Questions(tx).ClearAcceptedAnswer(ctx, answer.ID); err != nil {
			return err
		}
		if err := s.repomanager.Votes(tx).DeleteForTarget(ctx, answer.VoteTarget()); err != nil {
			return err
		}
		return s.repomanager.Answers(tx).Delete(ctx, answer.ID)
	})
	if err != nil {
		return fmt.Errorf("error deleting answer: %w", err)
	}

	s.log.Info(ctx, "answer deleted", "answer_id", answer.ID)
	return nil
}
