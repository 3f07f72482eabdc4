package web

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/server/httpx"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/services"
)

const (
	accessCookie  = common.AccessTokenCookieName
	refreshCookie = common.RefreshTokenCookieName
	loginURL      = "/account/login"
)

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) setTokens(w http.ResponseWriter, pair *services.TokenPair) {
	h.setCookie(w, accessCookie, pair.AccessToken, h.accessTTL)
	h.setCookie(w, refreshCookie, pair.RefreshToken, h.refreshTTL)
}

func (h *Handler) clearTokens(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Session resolves the session cookies to the request user. An expired
// access token is renewed with the refresh cookie; a session that cannot be
// renewed is dropped and the request continues anonymously.
func (h *Handler) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := h.sessionUser(w, r); user != nil {
			r = r.WithContext(httpx.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) sessionUser(w http.ResponseWriter, r *http.Request) *models.User {
	ctx := r.Context()

	if c, err := r.Cookie(accessCookie); err == nil && c.Value != "" {
		if user, err := h.svc.Users.Authenticate(ctx, c.Value); err == nil {
			return user
		}
	}

	c, err := r.Cookie(refreshCookie)
	if err != nil || c.Value == "" {
		return nil
	}

	pair, err := h.svc.Users.RefreshToken(ctx, c.Value)
	if err != nil {
		h.log.Debug(ctx, "session not renewed", "error", err)
		h.clearTokens(w)
		return nil
	}
	user, err := h.svc.Users.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		h.clearTokens(w)
		return nil
	}
	h.setTokens(w, pair)
	return user
}

// RequireLogin redirects anonymous visitors to the login page.
func (h *Handler) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpx.UserFrom(r.Context()) == nil {
			target := r.URL.RequestURI()
			if r.Method != http.MethodGet {
				target = r.URL.Path
			}
			http.Redirect(w, r, loginURL+"?next="+url.QueryEscape(target), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
