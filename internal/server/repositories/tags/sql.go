package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/google/uuid"
)

// SQLRepository implements Repository over dbx.DBTX.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) GetOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		uuid.NewString(), name)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	tag := &models.Tag{}
	err = r.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = $1`, name).Scan(&tag.ID, &tag.Name)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tag, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	tag := &models.Tag{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE id = $1`, id).Scan(&tag.ID, &tag.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tag, nil
}

func (r *SQLRepository) List(ctx context.Context, page models.PageRequest) ([]models.Tag, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM tags ORDER BY name LIMIT $1 OFFSET $2`, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var items []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return items, total, nil
}

func (r *SQLRepository) Attach(ctx context.Context, questionID string, tagIDs ...string) error {
	query := `INSERT INTO question_tags (question_id, tag_id) VALUES ($1, $2)
		ON CONFLICT (question_id, tag_id) DO NOTHING`

	for _, id := range tagIDs {
		if _, err := r.db.ExecContext(ctx, query, questionID, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) DetachAll(ctx context.Context, questionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM question_tags WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) ForQuestions(ctx context.Context, questionIDs []string) (map[string][]models.Tag, error) {
	result := make(map[string][]models.Tag, len(questionIDs))
	if len(questionIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(questionIDs))
	args := make([]any, len(questionIDs))
	for i, id := range questionIDs {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	query := `SELECT qt.question_id, t.id, t.name
		FROM question_tags qt JOIN tags t ON t.id = qt.tag_id
		WHERE qt.question_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY t.name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var qid string
		var t models.Tag
		if err := rows.Scan(&qid, &t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[qid] = append(result[qid], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
