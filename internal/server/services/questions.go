package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/dmitrijs2005/hasker/internal/server/metrics"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hasker/internal/slugx"
)

// slugAttempts bounds how often Ask retries after losing a slug race.
const slugAttempts = 3

type AskInput struct {
	Title string `json:"title" validate:"required,max=255"`
	Body  string `json:"text" validate:"required"`
	// Tags is a comma-separated list of tag names.
	Tags string `json:"tags"`
}

// QuestionService asks, lists, searches and deletes questions.
type QuestionService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	log               logging.Logger
	maxTags           int
	paginateQuestions int
	paginateTags      int
	trendingLimit     int
	now               func() time.Time
}

// NewQuestionService constructs a QuestionService using repositories and server config.
func NewQuestionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *QuestionService {
	return &QuestionService{
		db:                db,
		repomanager:       m,
		log:               log.With("module", "questions"),
		maxTags:           cfg.MaxTags,
		paginateQuestions: cfg.PaginateQuestions,
		paginateTags:      cfg.PaginateTags,
		trendingLimit:     cfg.TrendingLimit,
		now:               time.Now,
	}
}

// PageRequest normalises client paging input with the question page size
// as default.
func (s *QuestionService) PageRequest(page, size int) models.PageRequest {
	return models.NewPageRequest(page, size, s.paginateQuestions)
}

// Ask stores a new question by authorID with a unique slug derived from
// its title and the given tags.
func (s *QuestionService) Ask(ctx context.Context, authorID string, in AskInput) (*models.Question, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if err := Validate(in); err != nil {
		return nil, err
	}
	tagNames, err := ParseTags(in.Tags, s.maxTags)
	if err != nil {
		return nil, err
	}

	base := slugx.Slugify(in.Title, models.SlugMaxLength)

	for attempt := 1; ; attempt++ {
		q := &models.Question{
			Title:     in.Title,
			Body:      in.Body,
			AuthorID:  authorID,
			CreatedAt: s.now().UTC(),
		}

		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Questions(tx)

			slug, err := slugx.Unique(ctx, base, models.SlugMaxLength, repo.SlugExists)
			if err != nil {
				return err
			}
			q.Slug = slug

			if err := repo.Create(ctx, q); err != nil {
				return err
			}

			tags, err := s.attachTags(ctx, tx, q.ID, tagNames)
			if err != nil {
				return err
			}
			q.Tags = tags
			return nil
		})
		if err == nil {
			metrics.QuestionsCreated.Inc()
			s.log.Info(ctx, "question asked", "question_id", q.ID, "slug", q.Slug, "author_id", authorID)
			return q, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) || attempt >= slugAttempts {
			return nil, fmt.Errorf("error creating question: %w", err)
		}
		s.log.Debug(ctx, "slug taken concurrently, retrying", "base", base, "attempt", attempt)
	}
}

func (s *QuestionService) attachTags(ctx context.Context, tx dbx.DBTX, questionID string, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return []models.Tag{}, nil
	}

	repo := s.repomanager.Tags(tx)
	tags := make([]models.Tag, 0, len(names))
	ids := make([]string, 0, len(names))
	for _, name := range names {
		t, err := repo.GetOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
		ids = append(ids, t.ID)
	}

	if err := repo.Attach(ctx, questionID, ids...); err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *QuestionService) GetByID(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.repomanager.Questions(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return q, s.loadTags(ctx, q)
}

func (s *QuestionService) GetBySlug(ctx context.Context, slug string) (*models.Question, error) {
	q, err := s.repomanager.Questions(s.db).GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return q, s.loadTags(ctx, q)
}

func (s *QuestionService) loadTags(ctx context.Context, q *models.Question) error {
	byQuestion, err := s.repomanager.Tags(s.db).ForQuestions(ctx, []string{q.ID})
	if err != nil {
		return err
	}
	q.Tags = byQuestion[q.ID]
	if q.Tags == nil {
		q.Tags = []models.Tag{}
	}
	return nil
}

// withTags fills in the tags of every listed question with one query.
func (s *QuestionService) withTags(ctx context.Context, items []models.Question, total int, page models.PageRequest) (models.Page[models.Question], error) {
	if len(items) > 0 {
		ids := make([]string, len(items))
		for i := range items {
			ids[i] = items[i].ID
		}
		byQuestion, err := s.repomanager.Tags(s.db).ForQuestions(ctx, ids)
		if err != nil {
			return models.Page[models.Question]{}, err
		}
		for i := range items {
			items[i].Tags = byQuestion[items[i].ID]
			if items[i].Tags == nil {
				items[i].Tags = []models.Tag{}
			}
		}
	}
	return models.NewPage(items, total, page), nil
}

// List returns questions newest first or, with SortPopular, by rating.
func (s *QuestionService) List(ctx context.Context, sort models.Sort, page models.PageRequest) (models.Page[models.Question], error) {
	items, total, err := s.repomanager.Questions(s.db).List(ctx, sort, page)
	if err != nil {
		return models.Page[models.Question]{}, err
	}
	return s.withTags(ctx, items, total, page)
}

// Trending returns the most popular questions.
func (s *QuestionService) Trending(ctx context.Context) ([]models.Question, error) {
	items, err := s.repomanager.Questions(s.db).Trending(ctx, s.trendingLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Question{}
	}
	return items, nil
}

// Search runs the search box query raw. See ParseSearch.
func (s *QuestionService) Search(ctx context.Context, raw string, page models.PageRequest) (models.SearchQuery, models.Page[models.Question], error) {
	q := ParseSearch(raw)
	repo := s.repomanager.Questions(s.db)

	var (
		items []models.Question
		total int
		err   error
	)
	switch q.Kind {
	case models.SearchTag:
		items, total, err = repo.SearchByTag(ctx, q.Tag, page)
	case models.SearchText:
		items, total, err = repo.Search(ctx, q.Terms, page)
	default:
		return q, models.NewPage[models.Question](nil, 0, page), nil
	}
	if err != nil {
		return q, models.Page[models.Question]{}, err
	}

	res, err := s.withTags(ctx, items, total, page)
	return q, res, err
}

// ListByTag returns the questions carrying the tag with tagID.
func (s *QuestionService) ListByTag(ctx context.Context, tagID string, page models.PageRequest) (models.Page[models.Question], error) {
	if _, err := s.repomanager.Tags(s.db).GetByID(ctx, tagID); err != nil {
		return models.Page[models.Question]{}, err
	}
	items, total, err := s.repomanager.Questions(s.db).ListByTagID(ctx, tagID, page)
	if err != nil {
		return models.Page[models.Question]{}, err
	}
	return s.withTags(ctx, items, total, page)
}

// ListByAuthor returns the questions asked by authorID, newest first.
func (s *QuestionService) ListByAuthor(ctx context.Context, authorID string, page models.PageRequest) (models.Page[models.Question], error) {
	items, total, err := s.repomanager.Questions(s.db).ListByAuthor(ctx, authorID, page)
	if err != nil {
		return models.Page[models.Question]{}, err
	}
	return s.withTags(ctx, items, total, page)
}

// Tags lists all tags by name.
func (s *QuestionService) Tags(ctx context.Context, page, size int) (models.Page[models.Tag], error) {
	req := models.NewPageRequest(page, size, s.paginateTags)
	items, total, err := s.repomanager.Tags(s.db).List(ctx, req)
	if err != nil {
		return models.Page[models.Tag]{}, err
	}
	return models.NewPage(items, total, req), nil
}

// Delete removes question q with its answers and all votes on them. Only
// the author may delete.
func (s *QuestionService) Delete(ctx context.Context, q *models.Question, requesterID string) error {
	if q.AuthorID != requesterID {
		return common.ErrorForbidden
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		votes := s.repomanager.Votes(tx)
		if err := votes.DeleteForQuestionAnswers(ctx, q.ID); err != nil {
			return err
		}
		if err := votes.DeleteForTarget(ctx, q.VoteTarget()); err != nil {
			return err
		}
		if err := s.repomanager.Answers(tx).DeleteByQuestion(ctx, q.ID); err != nil {
			return err
		}
		if err := s.repomanager.Tags(tx).DetachAll(ctx, q.ID); err != nil {
			return err
		}
		return s.repomanager.Questions(tx).Delete(ctx, q.ID)
	})
	if err != nil {
		return fmt.Errorf("error deleting question: %w", err)
	}

	s.log.Info(ctx, "question deleted", "question_id", q.ID)
	return nil
}
