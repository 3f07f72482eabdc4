package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/hasker/internal/cryptox"
	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/dmitrijs2005/hasker/internal/server/mail"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hasker/internal/server/services"
	"github.com/dmitrijs2005/hasker/internal/server/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	cryptox.PasswordCost = bcrypt.MinCost
}

type apiEnv struct {
	srv *httptest.Server
	svc *services.Services
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDriver = config.DriverSQLite
	cfg.BaseURL = "http://hasker.test"

	db, err := repomanager.Open(ctx, config.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewRepositoryManager(config.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(ctx, db))

	st, err := storage.NewLocalStorage(t.TempDir(), storage.MediaURLPrefix)
	require.NoError(t, err)

	svc := services.New(db, rm, st, mail.NewLogMailer(logging.Nop()), cfg, logging.Nop())
	h := NewHandler(svc, logging.Nop(), nil, cfg.AvatarMaxSize)

	root := chi.NewRouter()
	root.Mount(Prefix, h.Routes())
	srv := httptest.NewServer(root)
	t.Cleanup(srv.Close)

	return &apiEnv{srv: srv, svc: svc}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.srv.URL+Prefix+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *apiEnv) send(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

// signup registers name and returns its access token.
func (e *apiEnv) signup(t *testing.T, name string) string {
	t.Helper()
	pw := "password-" + name
	resp, _ := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": pw,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": name, "password": pw})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["access_token"].(string)
}

func (e *apiEnv) askQuestion(t *testing.T, token, title, tags string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/questions", token, map[string]string{
		"title": title, "text": "body of " + title, "tags": tags,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["pk"].(string)
}

func TestAPI_Root(t *testing.T) {
	e := newAPIEnv(t)
	resp, body := e.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/api/v1/questions", body["questions"])
}

func TestAPI_AuthFlow(t *testing.T) {
	e := newAPIEnv(t)
	e.signup(t, "alice")

	resp, body := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "password-x",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "username already exists")

	resp, _ = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "password-alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer", body["token_type"])
	refresh := body["refresh_token"].(string)

	resp, body = e.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, refresh, body["refresh_token"])

	// the old refresh token is single use
	resp, _ = e.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/auth/logout", "", map[string]string{"refresh_token": body["refresh_token"].(string)})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_BearerAuth(t *testing.T) {
	e := newAPIEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/questions", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := e.signup(t, "alice")
	resp, body := e.do(t, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
}

func TestAPI_QuestionLifecycle(t *testing.T) {
	e := newAPIEnv(t)
	alice := e.signup(t, "alice")
	bob := e.signup(t, "bob")

	resp, _ := e.do(t, http.MethodPost, "/questions", "", map[string]string{"title": "t", "text": "b"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/questions", alice, map[string]string{"title": "", "text": "b"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request.", body["status"])

	id := e.askQuestion(t, alice, "How to exit vim", "vim, editors")

	resp, body = e.do(t, http.MethodGet, "/questions/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "How to exit vim", body["title"])
	assert.Equal(t, "how-to-exit-vim", body["slug"])
	assert.Equal(t, "alice", body["author"])
	assert.Equal(t, []any{"editors", "vim"}, body["tags"])
	assert.Equal(t, false, body["has_answer"])

	resp, _ = e.do(t, http.MethodGet, "/questions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, "/questions/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, "/questions/"+id, alice, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/questions/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Votes(t *testing.T) {
	e := newAPIEnv(t)
	alice := e.signup(t, "alice")
	bob := e.signup(t, "bob")
	id := e.askQuestion(t, alice, "Vote on me", "")

	resp, body := e.do(t, http.MethodPost, "/questions/"+id+"/vote", bob, map[string]any{"value": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1), body["rating"])
	assert.Equal(t, true, body["vote"])

	// repeating the same vote changes nothing
	_, body = e.do(t, http.MethodPost, "/questions/"+id+"/vote", bob, map[string]any{"value": true})
	assert.Equal(t, float64(1), body["rating"])
	assert.Equal(t, false, body["vote"])

	// the opposite vote withdraws the first one
	_, body = e.do(t, http.MethodPost, "/questions/"+id+"/vote", bob, map[string]any{"value": "false"})
	assert.Equal(t, float64(0), body["rating"])
	assert.Equal(t, true, body["vote"])

	// authors cannot vote for themselves
	_, body = e.do(t, http.MethodPost, "/questions/"+id+"/vote", alice, map[string]any{"value": true})
	assert.Equal(t, float64(0), body["rating"])
	assert.Equal(t, false, body["vote"])

	resp, _ = e.do(t, http.MethodPost, "/questions/"+id+"/vote", "", map[string]any{"value": true})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_AnswersAndMark(t *testing.T) {
	e := newAPIEnv(t)
	alice := e.signup(t, "alice")
	bob := e.signup(t, "bob")
	qid := e.askQuestion(t, alice, "Needs answers", "")

	resp, body := e.do(t, http.MethodPost, "/questions/"+qid+"/answers", bob, map[string]string{"text": "try this"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	aid := body["pk"].(string)
	assert.Equal(t, "bob", body["author"])

	resp, body = e.do(t, http.MethodGet, "/questions/"+qid+"/answers", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])
	assert.Nil(t, body["next"])

	// only the question author can mark
	_, body = e.do(t, http.MethodPost, "/answers/"+aid+"/mark", bob, nil)
	assert.Equal(t, false, body["success"])

	_, body = e.do(t, http.MethodPost, "/answers/"+aid+"/mark", alice, nil)
	assert.Equal(t, true, body["success"])

	_, body = e.do(t, http.MethodGet, "/answers/"+aid, "", nil)
	assert.Equal(t, true, body["is_accepted"])

	_, body = e.do(t, http.MethodGet, "/questions/"+qid, "", nil)
	assert.Equal(t, true, body["has_answer"])
	assert.Equal(t, aid, body["accepted_answer"])

	// marking again unmarks
	_, body = e.do(t, http.MethodPost, "/answers/"+aid+"/mark", alice, nil)
	assert.Equal(t, true, body["success"])
	_, body = e.do(t, http.MethodGet, "/answers/"+aid, "", nil)
	assert.Equal(t, false, body["is_accepted"])

	_, body = e.do(t, http.MethodPost, "/answers/"+aid+"/vote", alice, map[string]any{"value": true})
	assert.Equal(t, float64(1), body["rating"])

	resp, _ = e.do(t, http.MethodDelete, "/answers/"+aid, alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = e.do(t, http.MethodDelete, "/answers/"+aid, bob, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/answers/"+aid, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ListingsAndSearch(t *testing.T) {
	e := newAPIEnv(t)
	alice := e.signup(t, "alice")
	for _, title := range []string{"First question", "Second question", "Third question"} {
		e.askQuestion(t, alice, title, "golang")
	}

	resp, body := e.do(t, http.MethodGet, "/questions?page_size=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, float64(2), body["num_pages"])
	assert.Len(t, body["results"], 2)
	assert.Equal(t, "/api/v1/questions?page=2&page_size=2", body["next"])
	assert.Nil(t, body["previous"])

	_, body = e.do(t, http.MethodGet, "/search?q=Second", "", nil)
	require.Len(t, body["results"], 1)
	assert.Equal(t, "Second question", body["results"].([]any)[0].(map[string]any)["title"])

	_, body = e.do(t, http.MethodGet, "/search?q=tag%3Ago", "", nil)
	assert.Equal(t, float64(3), body["count"])

	_, body = e.do(t, http.MethodGet, "/search?q=tag:", "", nil)
	assert.Equal(t, float64(0), body["count"])

	_, body = e.do(t, http.MethodGet, "/tags", "", nil)
	require.Len(t, body["results"], 1)
	tag := body["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "golang", tag["name"])

	path := strings.TrimPrefix(tag["questions"].(string), Prefix)
	_, body = e.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, float64(3), body["count"])

	resp, _ = e.do(t, http.MethodGet, "/tags/missing/questions", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, e.srv.URL+Prefix+"/trending", nil)
	require.NoError(t, err)
	resp, err = e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var trending []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&trending))
	assert.Len(t, trending, 3)
}

func TestAPI_Users(t *testing.T) {
	e := newAPIEnv(t)
	alice := e.signup(t, "alice")
	bob := e.signup(t, "bob")

	_, body := e.do(t, http.MethodGet, "/users/alice", bob, nil)
	assert.Equal(t, "alice", body["username"])
	assert.Nil(t, body["email"])
	assert.Equal(t, "/static/img/avatar.png", body["avatar"])

	_, body = e.do(t, http.MethodGet, "/users/alice", alice, nil)
	assert.Equal(t, "alice@example.com", body["email"])

	resp, _ := e.do(t, http.MethodGet, "/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = e.do(t, http.MethodPut, "/profile", alice, map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, http.MethodPut, "/profile", alice, map[string]string{"email": "new@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "new@example.com", body["email"])
}

func avatarRequest(t *testing.T, url, token, name string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="avatar"; filename="` + name + `"`}
		h["Content-Type"] = []string{"image/png"}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAPI_Avatar(t *testing.T) {
	e := newAPIEnv(t)
	alice := e.signup(t, "alice")
	url := e.srv.URL + Prefix + "/profile/avatar"

	resp, body := e.send(t, avatarRequest(t, url, alice, "me.PNG", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body["avatar"].(string), "/media/avatars/"))
	assert.True(t, strings.HasSuffix(body["avatar"].(string), ".png"))

	resp, body = e.send(t, avatarRequest(t, url, alice, "", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, errNoFile.Error(), body["error"])

	resp, body = e.send(t, avatarRequest(t, url, alice, "big.png", bytes.Repeat([]byte{1}, 3<<19)))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "Please keep filesize under")

	resp, body = e.do(t, http.MethodDelete, "/profile/avatar", alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/static/img/avatar.png", body["avatar"])
}
