package services

import (
	"database/sql"

	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/dmitrijs2005/hasker/internal/server/mail"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hasker/internal/server/storage"
)

// Services bundles the services the transports are built on.
type Services struct {
	Users     *UserService
	Questions *QuestionService
	Answers   *AnswerService
	Votes     *VoteService
}

func New(db *sql.DB, m repomanager.RepositoryManager, st storage.Storage, mailer mail.Mailer, cfg *config.Config, log logging.Logger) *Services {
	return &Services{
		Users:     NewUserService(db, m, st, cfg, log),
		Questions: NewQuestionService(db, m, cfg, log),
		Answers:   NewAnswerService(db, m, mailer, cfg, log),
		Votes:     NewVoteService(db, m, log),
	}
}
