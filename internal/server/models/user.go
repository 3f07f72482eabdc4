// Package models defines server-side data models persisted in the database.
package models

import "time"

// DefaultAvatarURL is shown for users that never uploaded an avatar.
const DefaultAvatarURL = "/static/img/avatar.png"

type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	// AvatarKey is the storage key of the uploaded avatar, empty when unset.
	AvatarKey string
	CreatedAt time.Time
}
