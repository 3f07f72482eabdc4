package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/metrics"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/repomanager"
)

// VoteResult is the outcome of CastVote. Rating is the target's rating
// after the call, whether or not anything changed.
type VoteResult struct {
	Changed bool
	Rating  int
}

// VoteService keeps the vote ledger and the denormalised ratings of
// questions and answers in step.
type VoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	now         func() time.Time
}

// NewVoteService constructs a VoteService over the vote and rating repositories.
func NewVoteService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *VoteService {
	return &VoteService{
		db:          db,
		repomanager: m,
		log:         log.With("module", "votes"),
		now:         time.Now,
	}
}

// CastVote records voterID's opinion on target. value true is an up-vote.
//
// A vote opposite to the stored one cancels it (the next opposite call
// casts a fresh vote), a repeated vote is ignored and authors cannot vote
// on their own entries.
func (s *VoteService) CastVote(ctx context.Context, target models.Votable, voterID string, value bool) (VoteResult, error) {
	t := target.VoteTarget()
	res := VoteResult{Rating: target.CurrentRating()}

	if voterID == target.Author() {
		metrics.VotesTotal.WithLabelValues(string(t.Kind), metrics.ResultUnchanged).Inc()
		return res, nil
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		votes := s.repomanager.Votes(tx)

		delta := 0
		existing, err := votes.Find(ctx, voterID, t)
		switch {
		case err == nil:
			if existing.Value == value {
				break
			}
			deleted, err := votes.Delete(ctx, existing.ID)
			if err != nil {
				return err
			}
			if deleted {
				delta = models.Delta(value)
			}
		case errors.Is(err, common.ErrorNotFound):
			inserted, err := votes.Insert(ctx, &models.Vote{
				UserID:    voterID,
				Target:    t,
				Value:     value,
				CreatedAt: s.now().UTC(),
			})
			if err != nil {
				return err
			}
			if inserted {
				delta = models.Delta(value)
			}
		default:
			return err
		}

		if delta == 0 {
			rating, err := s.currentRating(ctx, tx, t)
			if err != nil {
				return err
			}
			res.Rating = rating
			return nil
		}

		rating, err := s.adjust(ctx, tx, t, delta)
		if err != nil {
			return err
		}
		res.Changed = true
		res.Rating = rating
		return nil
	})

	metrics.VotesTotal.WithLabelValues(string(t.Kind), metrics.ResultLabel(res.Changed, err)).Inc()
	if err != nil {
		return VoteResult{Rating: target.CurrentRating()}, fmt.Errorf("error casting vote: %w", err)
	}

	s.log.Debug(ctx, "vote", "target", t.Kind, "target_id", t.ID, "user_id", voterID,
		"value", value, "changed", res.Changed, "rating", res.Rating)
	return res, nil
}

func (s *VoteService) adjust(ctx context.Context, tx dbx.DBTX, t models.VoteTarget, delta int) (int, error) {
	switch t.Kind {
	case models.TargetQuestion:
		return s.repomanager.Questions(tx).AdjustRating(ctx, t.ID, delta)
	case models.TargetAnswer:
		return s.repomanager.Answers(tx).AdjustRating(ctx, t.ID, delta)
	default:
		return 0, fmt.Errorf("unknown vote target %q", t.Kind)
	}
}

// currentRating rereads the stored rating, which concurrent voters may
// have moved since the target was loaded.
func (s *VoteService) currentRating(ctx context.Context, tx dbx.DBTX, t models.VoteTarget) (int, error) {
	switch t.Kind {
	case models.TargetQuestion:
		q, err := s.repomanager.Questions(tx).GetByID(ctx, t.ID)
		if err != nil {
			return 0, err
		}
		return q.Rating, nil
	case models.TargetAnswer:
		a, err := s.repomanager.Answers(tx).GetByID(ctx, t.ID)
		if err != nil {
			return 0, err
		}
		return a.Rating, nil
	default:
		return 0, fmt.Errorf("unknown vote target %q", t.Kind)
	}
}
