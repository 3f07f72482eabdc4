// Package common contains shared constants and sentinel errors used across
// Hasker components.
package common

// Cookies that carry the session tokens of the server-rendered pages.
const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"
)

// AuthorizationScheme is the scheme expected in the Authorization header of
// API requests.
const AuthorizationScheme = "Bearer"
