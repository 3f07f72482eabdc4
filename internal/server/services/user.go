// Package services contains server-side business logic. This file implements
// UserService, which handles accounts, login, issuing/refreshing JWTs plus
// server-stored refresh tokens, and avatars.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/dmitrijs2005/hasker/internal/cryptox"
	"github.com/dmitrijs2005/hasker/internal/dbx"
	"github.com/dmitrijs2005/hasker/internal/logging"
	"github.com/dmitrijs2005/hasker/internal/server/auth"
	"github.com/dmitrijs2005/hasker/internal/server/config"
	"github.com/dmitrijs2005/hasker/internal/server/models"
	"github.com/dmitrijs2005/hasker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hasker/internal/server/storage"
	"github.com/dustin/go-humanize"
)

const avatarDir = "avatars"

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	UserName string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// AvatarUpload is an uploaded image file.
type AvatarUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// UserService provides account operations:
// - Register, Login, Logout: create users, verify credentials, mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - Authenticate: resolve an access token to a user
// - UpdateEmail, UpdateAvatar, ClearAvatar: profile edits
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	storage                      storage.Storage
	log                          logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	avatarMaxSize                int64
	avatarContentTypes           []string
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, st storage.Storage, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		storage:                      st,
		log:                          log.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		avatarMaxSize:                cfg.AvatarMaxSize,
		avatarContentTypes:           cfg.AvatarContentTypes,
		now:                          time.Now,
	}
}

// Register creates a new user. Taken usernames and e-mails are reported
// as validation errors with a readable message.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.TrimSpace(in.Email)
	if err := Validate(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByUserName(ctx, in.UserName); err == nil {
		return nil, validationError("a user with that username already exists")
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if err := s.checkEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, validationError("a user with that username or email address already exists")
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (s *UserService) checkEmailFree(ctx context.Context, email string) error {
	_, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return validationError("a user with that email address already exists")
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return fmt.Errorf("error searching user: %w", err)
	}
}

// Login verifies the password and, on success, returns a new TokenPair.
// Unknown users and wrong passwords both yield ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, userName, password string) (*TokenPair, *models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, common.ErrorInternal
	}

	ok, err := cryptox.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}
	if !ok {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired; a
// token already rotated by a concurrent call yields ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		deleted, err := repoTx.Delete(ctx, refreshToken)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !deleted {
			return common.ErrorUnauthorized
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if _, err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// PurgeExpiredTokens drops refresh tokens that are past their expiry.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now().UTC())
}

// Authenticate resolves an access token to its user.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

func (s *UserService) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByUserName(ctx, userName)
}

// UpdateEmail changes the e-mail of user. Uniqueness is checked only when
// the address actually changes.
func (s *UserService) UpdateEmail(ctx context.Context, user *models.User, email string) error {
	email = strings.TrimSpace(email)
	in := struct {
		Email string `json:"email" validate:"required,max=254,email"`
	}{Email: email}
	if err := Validate(in); err != nil {
		return err
	}
	if email == user.Email {
		return nil
	}
	if err := s.checkEmailFree(ctx, email); err != nil {
		return err
	}

	if err := s.repomanager.Users(s.db).UpdateEmail(ctx, user.ID, email); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return validationError("a user with that email address already exists")
		}
		return err
	}
	user.Email = email
	return nil
}

// UpdateAvatar stores a new avatar for user and removes the previous one.
// The stored name is the MD5 of the content plus the original extension,
// kept under a per-user directory so users never share an object.
func (s *UserService) UpdateAvatar(ctx context.Context, user *models.User, up AvatarUpload) error {
	if !slices.Contains(s.avatarContentTypes, up.ContentType) {
		return validationError("Filetype not supported")
	}
	if size := int64(len(up.Data)); size > s.avatarMaxSize {
		return validationError(fmt.Sprintf("Please keep filesize under %s. Current filesize %s",
			humanize.IBytes(uint64(s.avatarMaxSize)), humanize.IBytes(uint64(size))))
	}

	key := avatarKey(user.ID, up)
	if err := s.storage.Put(ctx, key, up.Data, up.ContentType); err != nil {
		return fmt.Errorf("error storing avatar: %w", err)
	}

	return s.replaceAvatar(ctx, user, key)
}

func avatarKey(userID string, up AvatarUpload) string {
	return path.Join(avatarDir, userID, cryptox.ContentHash(up.Data)+strings.ToLower(path.Ext(up.FileName)))
}

// ClearAvatar removes the avatar of user.
func (s *UserService) ClearAvatar(ctx context.Context, user *models.User) error {
	if user.AvatarKey == "" {
		return nil
	}
	return s.replaceAvatar(ctx, user, "")
}

func (s *UserService) replaceAvatar(ctx context.Context, user *models.User, key string) error {
	old := user.AvatarKey
	if err := s.repomanager.Users(s.db).UpdateAvatar(ctx, user.ID, key); err != nil {
		return err
	}
	user.AvatarKey = key

	if old != "" && old != key {
		if err := s.storage.Delete(ctx, old); err != nil {
			s.log.Warn(ctx, "old avatar not removed", "key", old, "error", err)
		}
	}
	return nil
}

// AvatarURL returns the address of the user's avatar or the default image.
func (s *UserService) AvatarURL(ctx context.Context, user *models.User) string {
	if user == nil || user.AvatarKey == "" {
		return models.DefaultAvatarURL
	}
	u, err := s.storage.URL(ctx, user.AvatarKey)
	if err != nil {
		s.log.Warn(ctx, "avatar url", "key", user.AvatarKey, "error", err)
		return models.DefaultAvatarURL
	}
	return u
}

// --- helpers below ---

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
