package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/server/httpx"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type loginData struct {
	UserName string
	Next     string
	Error    string
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", "Log in", loginData{Next: r.URL.Query().Get("next")})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	data := loginData{UserName: r.FormValue("username"), Next: r.FormValue("next")}

	pair, _, err := h.svc.Users.Login(r.Context(), data.UserName, r.FormValue("password"))
	if err != nil {
		if !errors.Is(err, common.ErrorUnauthorized) {
			h.fail(w, r, err)
			return
		}
		data.Error = "Please enter a correct username and password."
		h.render(w, r, http.StatusOK, "login.html", "Log in", data)
		return
	}

	h.setTokens(w, pair)
	http.Redirect(w, r, safeNext(data.Next), http.StatusFound)
}

type signupData struct {
	UserName string
	Email    string
	Error    string
}

func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signup.html", "Sign up", signupData{})
}

// Signup registers the user and logs them in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	data := signupData{UserName: r.FormValue("username"), Email: r.FormValue("email")}
	password := r.FormValue("password")

	if password != r.FormValue("password2") {
		data.Error = "The two password fields didn't match."
		h.render(w, r, http.StatusOK, "signup.html", "Sign up", data)
		return
	}

	_, err := h.svc.Users.Register(r.Context(), services.RegisterInput{
		UserName: data.UserName,
		Email:    data.Email,
		Password: password,
	})
	if err != nil {
		msg, ok := formError(err)
		if !ok {
			h.fail(w, r, err)
			return
		}
		data.Error = msg
		h.render(w, r, http.StatusOK, "signup.html", "Sign up", data)
		return
	}

	pair, _, err := h.svc.Users.Login(r.Context(), data.UserName, password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setTokens(w, pair)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(refreshCookie); err == nil && c.Value != "" {
		if err := h.svc.Users.Logout(r.Context(), c.Value); err != nil {
			h.log.Warn(r.Context(), "logout failed", "error", err)
		}
	}
	h.clearTokens(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

type profileData struct {
	Profile   *models.User
	AvatarURL string
	Own       bool
	Questions models.Page[models.Question]
	Pager     pager
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.GetByUserName(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page, size := httpx.PageParams(r)
	qs, err := h.svc.Questions.ListByAuthor(r.Context(), u.ID, h.svc.Questions.PageRequest(page, size))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	me := httpx.UserFrom(r.Context())
	h.render(w, r, http.StatusOK, "profile.html", u.UserName, profileData{
		Profile:   u,
		AvatarURL: h.svc.Users.AvatarURL(r.Context(), u),
		Own:       me != nil && me.ID == u.ID,
		Questions: qs,
		Pager:     newPager(r, qs),
	})
}

type settingsData struct {
	Email     string
	AvatarURL string
	HasAvatar bool
	Saved     bool
	Error     string
}

func (h *Handler) settingsData(r *http.Request, user *models.User) settingsData {
	return settingsData{
		Email:     user.Email,
		AvatarURL: h.svc.Users.AvatarURL(r.Context(), user),
		HasAvatar: user.AvatarKey != "",
	}
}

func (h *Handler) SettingsForm(w http.ResponseWriter, r *http.Request) {
	user := httpx.UserFrom(r.Context())
	h.render(w, r, http.StatusOK, "settings.html", "Settings", h.settingsData(r, user))
}

// Settings updates the e-mail and, when a file is attached, the avatar.
// The "avatar-clear" checkbox removes the avatar.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	user := httpx.UserFrom(r.Context())
	ctx := r.Context()

	err := h.applySettings(w, r, user)
	if err != nil {
		msg, ok := formError(err)
		if !ok {
			h.fail(w, r, err)
			return
		}
		data := h.settingsData(r, user)
		data.Email = r.FormValue("email")
		data.Error = msg
		h.render(w, r, http.StatusOK, "settings.html", "Settings", data)
		return
	}

	h.log.Info(ctx, "settings updated", "user_id", user.ID)
	data := h.settingsData(r, user)
	data.Saved = true
	h.render(w, r, http.StatusOK, "settings.html", "Settings", data)
}

func (h *Handler) applySettings(w http.ResponseWriter, r *http.Request, user *models.User) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadSize + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return validationErr("The upload is too large.")
	}

	if err := h.svc.Users.UpdateEmail(r.Context(), user, r.FormValue("email")); err != nil {
		return err
	}

	if r.FormValue("avatar-clear") == "on" {
		return h.svc.Users.ClearAvatar(r.Context(), user)
	}

	up, err := readUpload(r, "avatar")
	if err != nil || up == nil {
		return err
	}
	return h.svc.Users.UpdateAvatar(r.Context(), user, *up)
}

// readUpload returns nil when the form carries no file under field.
func readUpload(r *http.Request, field string) (*services.AvatarUpload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &services.AvatarUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
