package answers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/google/uuid"
)

const selectAnswer = `SELECT a.id, a.question_id, a.author_id, u.username, a.body, a.rating, a.created_at
	FROM answers a JOIN users u ON u.id = a.author_id`

// SQLRepository implements Repository over dbx.DBTX.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, a *models.Answer) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO answers (id, question_id, author_id, body, rating, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.ExecContext(ctx, query, a.ID, a.QuestionID, a.AuthorID, a.Body, a.Rating, a.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Answer, error) {
	a := &models.Answer{}
	err := r.db.QueryRowContext(ctx, selectAnswer+` WHERE a.id = $1`, id).
		Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.AuthorName, &a.Body, &a.Rating, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *SQLRepository) ListByQuestion(ctx context.Context, questionID string, page models.PageRequest) ([]models.Answer, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers WHERE question_id = $1`, questionID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	query := selectAnswer + ` WHERE a.question_id = $1
		ORDER BY a.rating DESC, a.created_at DESC, a.id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, questionID, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.AuthorName, &a.Body, &a.Rating, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return items, total, nil
}

func (r *SQLRepository) AdjustRating(ctx context.Context, id string, delta int) (int, error) {
	query := `UPDATE answers SET rating = rating + $1 WHERE id = $2 RETURNING rating`

	var rating int
	if err := r.db.QueryRowContext(ctx, query, delta, id).Scan(&rating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return rating, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM answers WHERE id = $1`, id)
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

func (r *SQLRepository) DeleteByQuestion(ctx context.Context, questionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM answers WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
