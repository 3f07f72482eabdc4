package votes

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

// SQLRepository implements Repository over dbx.DBTX.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Find(ctx context.Context, userID string, target models.VoteTarget) (*models.Vote, error) {
	query := `SELECT id, user_id, target_type, target_id, value, created_at FROM votes
		WHERE user_id = $1 AND target_type = $2 AND target_id = $3`

	v := &models.Vote{}
	var kind string
	err := r.db.QueryRowContext(ctx, query, userID, string(target.Kind), target.ID).
		Scan(&v.ID, &v.UserID, &kind, &v.Target.ID, &v.Value, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	v.Target.Kind = models.TargetKind(kind)
	return v, nil
}

func (r *SQLRepository) Insert(ctx context.Context, v *models.Vote) (bool, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO votes (id, user_id, target_type, target_id, value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, target_type, target_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		v.ID, v.UserID, string(v.Target.Kind), v.Target.ID, v.Value, v.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected(res)
}

func (r *SQLRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected(res)
}

func (r *SQLRepository) DeleteForTarget(ctx context.Context, target models.VoteTarget) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE target_type = $1 AND target_id = $2`,
		string(target.Kind), target.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) DeleteForQuestionAnswers(ctx context.Context, questionID string) error {
	query := `DELETE FROM votes WHERE target_type = $1
		AND target_id IN (SELECT id FROM answers WHERE question_id = $2)`

	if _, err := r.db.ExecContext(ctx, query, string(models.TargetAnswer), questionID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}
