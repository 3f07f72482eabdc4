package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/server/mail"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	answersrepo "github.com/dmitrijs2005/hasker/internal/server/repositories/answers"
	questionsrepo "github.com/dmitrijs2005/hasker/internal/server/repositories/questions"
	refreshtokensrepo "github.com/dmitrijs2005/hasker/internal/server/repositories/refreshtokens"
	tagsrepo "github.com/dmitrijs2005/hasker/internal/server/repositories/tags"
	usersrepo "github.com/dmitrijs2005/hasker/internal/server/repositories/users"
	votesrepo "github.com/dmitrijs2005/hasker/internal/server/repositories/votes"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// fakeRepoManager hands out the same fakes for the plain handle and for
// transactions.
type fakeRepoManager struct {
	users     *fakeUsersRepo
	refresh   *fakeRefreshRepo
	questions *fakeQuestionsRepo
	answers   *fakeAnswersRepo
	tags      tagsrepo.Repository
	votes     *fakeVotesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.users }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.refresh }
func (m *fakeRepoManager) Questions(db dbx.DBTX) questionsrepo.Repository         { return m.questions }
func (m *fakeRepoManager) Answers(db dbx.DBTX) answersrepo.Repository             { return m.answers }
func (m *fakeRepoManager) Tags(db dbx.DBTX) tagsrepo.Repository                   { return m.tags }
func (m *fakeRepoManager) Votes(db dbx.DBTX) votesrepo.Repository                 { return m.votes }

type fakeUsersRepo struct {
	byID map[string]*models.User

	createErr error
	getErr    error
	updateErr error
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range users {
		r.byID[u.ID] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if u.ID == "" {
		u.ID = "new-user"
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if match(u) {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsersRepo) GetByUserName(_ context.Context, name string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.UserName == name })
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsersRepo) UpdateEmail(_ context.Context, id, email string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Email = email
	return nil
}

func (f *fakeUsersRepo) UpdateAvatar(_ context.Context, id, key string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.AvatarKey = key
	return nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	notDeleted bool
	delErr     error

	createErr error
	created   []string
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) (bool, error) {
	if f.delErr != nil {
		return false, f.delErr
	}
	return !f.notDeleted, nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return 2, nil
}

// fakeQuestionsRepo implements the rating and acceptance methods; the
// embedded interface is nil, so anything else panics.
type fakeQuestionsRepo struct {
	questionsrepo.Repository

	q         *models.Question
	getErr    error
	adjustErr error
	deltas    []int

	casFail bool
	setErr  error
	sets    [][2]*string
}

func (f *fakeQuestionsRepo) GetByID(_ context.Context, id string) (*models.Question, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.q == nil || f.q.ID != id {
		return nil, common.ErrorNotFound
	}
	cp := *f.q
	return &cp, nil
}

func (f *fakeQuestionsRepo) AdjustRating(_ context.Context, id string, delta int) (int, error) {
	if f.adjustErr != nil {
		return 0, f.adjustErr
	}
	f.deltas = append(f.deltas, delta)
	f.q.Rating += delta
	return f.q.Rating, nil
}

func (f *fakeQuestionsRepo) SetAcceptedAnswer(_ context.Context, id string, prev, next *string) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	f.sets = append(f.sets, [2]*string{prev, next})
	if f.casFail {
		return false, nil
	}
	f.q.AcceptedAnswerID = next
	return true, nil
}

type fakeAnswersRepo struct {
	answersrepo.Repository

	a         *models.Answer
	createErr error
	created   []*models.Answer
	deltas    []int
}

func (f *fakeAnswersRepo) Create(_ context.Context, a *models.Answer) error {
	if f.createErr != nil {
		return f.createErr
	}
	if a.ID == "" {
		a.ID = "new-answer"
	}
	f.created = append(f.created, a)
	return nil
}

func (f *fakeAnswersRepo) GetByID(_ context.Context, id string) (*models.Answer, error) {
	if f.a == nil || f.a.ID != id {
		return nil, common.ErrorNotFound
	}
	cp := *f.a
	return &cp, nil
}

func (f *fakeAnswersRepo) AdjustRating(_ context.Context, id string, delta int) (int, error) {
	f.deltas = append(f.deltas, delta)
	f.a.Rating += delta
	return f.a.Rating, nil
}

type fakeVotesRepo struct {
	votesrepo.Repository

	found   *models.Vote
	findErr error

	insertLost bool
	insertErr  error
	inserted   []*models.Vote

	deleteLost bool
	deleteErr  error
	deleted    []string
}

func (f *fakeVotesRepo) Find(_ context.Context, userID string, target models.VoteTarget) (*models.Vote, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.found == nil {
		return nil, common.ErrorNotFound
	}
	return f.found, nil
}

func (f *fakeVotesRepo) Insert(_ context.Context, v *models.Vote) (bool, error) {
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if f.insertLost {
		return false, nil
	}
	f.inserted = append(f.inserted, v)
	return true, nil
}

func (f *fakeVotesRepo) Delete(_ context.Context, id string) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	if f.deleteLost {
		return false, nil
	}
	f.deleted = append(f.deleted, id)
	return true, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
	delErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) URL(_ context.Context, key string) (string, error) {
	if key == "broken" {
		return "", errors.New("no url")
	}
	return "/media/" + key, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}
