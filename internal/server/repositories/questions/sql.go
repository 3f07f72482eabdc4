package questions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/google/uuid"
)

const (
	selectColumns = `q.id, q.title, q.body, q.author_id, u.username, q.slug, q.rating, q.accepted_answer_id, q.created_at,
		(SELECT COUNT(*) FROM answers a WHERE a.question_id = q.id)`
	fromQuestions = ` FROM questions q JOIN users u ON u.id = q.author_id`

	orderNew     = ` ORDER BY q.created_at DESC, q.id`
	orderPopular = ` ORDER BY q.rating DESC, q.created_at DESC, q.id`

	tagFilter = `q.id IN (SELECT qt.question_id FROM question_tags qt JOIN tags t ON t.id = qt.tag_id WHERE `
)

// SQLRepository implements Repository over dbx.DBTX.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO questions (id, title, body, author_id, slug, rating, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query, q.ID, q.Title, q.Body, q.AuthorID, q.Slug, q.Rating, q.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE slug = $1`, slug).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Question, error) {
	return r.getOne(ctx, "q.id = $1", id)
}

func (r *SQLRepository) GetBySlug(ctx context.Context, slug string) (*models.Question, error) {
	return r.getOne(ctx, "q.slug = $1", slug)
}

func (r *SQLRepository) getOne(ctx context.Context, where string, arg any) (*models.Question, error) {
	query := `SELECT ` + selectColumns + fromQuestions + ` WHERE ` + where

	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return q, nil
}

func (r *SQLRepository) List(ctx context.Context, sort models.Sort, page models.PageRequest) ([]models.Question, int, error) {
	order := orderNew
	if sort == models.SortPopular {
		order = orderPopular
	}
	return r.list(ctx, "", nil, order, page)
}

func (r *SQLRepository) Search(ctx context.Context, terms []string, page models.PageRequest) ([]models.Question, int, error) {
	if len(terms) == 0 {
		return nil, 0, nil
	}

	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for i, term := range terms {
		p := "$" + strconv.Itoa(i+1)
		conds = append(conds, `LOWER(q.title) LIKE `+p+` ESCAPE '\' OR LOWER(q.body) LIKE `+p+` ESCAPE '\'`)
		args = append(args, ContainsPattern(term))
	}

	return r.list(ctx, strings.Join(conds, " OR "), args, orderPopular, page)
}

func (r *SQLRepository) SearchByTag(ctx context.Context, tag string, page models.PageRequest) ([]models.Question, int, error) {
	where := tagFilter + `LOWER(t.name) LIKE $1 ESCAPE '\')`
	return r.list(ctx, where, []any{ContainsPattern(tag)}, orderPopular, page)
}

func (r *SQLRepository) ListByTagID(ctx context.Context, tagID string, page models.PageRequest) ([]models.Question, int, error) {
	where := tagFilter + `t.id = $1)`
	return r.list(ctx, where, []any{tagID}, orderPopular, page)
}

func (r *SQLRepository) ListByAuthor(ctx context.Context, authorID string, page models.PageRequest) ([]models.Question, int, error) {
	return r.list(ctx, `q.author_id = $1`, []any{authorID}, orderNew, page)
}

func (r *SQLRepository) Trending(ctx context.Context, limit int) ([]models.Question, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT ` + selectColumns + fromQuestions + orderPopular + ` LIMIT $1`
	return r.query(ctx, query, limit)
}

// list runs the page query and the matching count query. where uses
// placeholders $1..$len(args).
func (r *SQLRepository) list(ctx context.Context, where string, args []any, order string, page models.PageRequest) ([]models.Question, int, error) {
	filter := ""
	if where != "" {
		filter = ` WHERE ` + where
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM questions q` + filter
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	n := len(args)
	query := `SELECT ` + selectColumns + fromQuestions + filter + order +
		` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)

	items, err := r.query(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(s scanner) (*models.Question, error) {
	var accepted sql.NullString
	q := &models.Question{}

	err := s.Scan(&q.ID, &q.Title, &q.Body, &q.AuthorID, &q.AuthorName, &q.Slug, &q.Rating,
		&accepted, &q.CreatedAt, &q.AnswersCount)
	if err != nil {
		return nil, err
	}
	if accepted.Valid {
		q.AcceptedAnswerID = &accepted.String
	}
	return q, nil
}

func (r *SQLRepository) AdjustRating(ctx context.Context, id string, delta int) (int, error) {
	query := `UPDATE questions SET rating = rating + $1 WHERE id = $2 RETURNING rating`

	var rating int
	if err := r.db.QueryRowContext(ctx, query, delta, id).Scan(&rating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return rating, nil
}

func (r *SQLRepository) SetAcceptedAnswer(ctx context.Context, id string, prev, next *string) (bool, error) {
	query := `UPDATE questions SET accepted_answer_id = $1
		WHERE id = $2 AND accepted_answer_id IS NOT DISTINCT FROM $3`

	res, err := r.db.ExecContext(ctx, query, nullable(next), id, nullable(prev))
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *SQLRepository) ClearAcceptedAnswer(ctx context.Context, answerID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE questions SET accepted_answer_id = NULL WHERE accepted_answer_id = $1`, answerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ContainsPattern returns a lower-case LIKE pattern matching s anywhere,
// with the LIKE wildcards in s escaped by backslash.
func ContainsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
