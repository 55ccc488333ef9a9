package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// Identity owns accounts, credentials and sessions.
type Identity struct {
	deps Deps
}

// RegisterInput is a sign-up request. Avatar and cover image are optional
// local files already spooled from the request.
type RegisterInput struct {
	Username       string `json:"username" validate:"required,max=30"`
	Email          string `json:"email" validate:"required,email"`
	FullName       string `json:"fullName" validate:"max=100"`
	Password       string `json:"password" validate:"required,min=6"`
	AvatarPath     string `json:"-"`
	CoverImagePath string `json:"-"`
}

// LoginInput identifies the account by username or email.
type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. Uploaded images are removed again if the
// account cannot be stored.
func (s *Identity) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	defer removeFiles(ctx, in.AvatarPath, in.CoverImagePath)

	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if err := check(in); err != nil {
		return models.User{}, err
	}

	if err := s.ensureAvailable(ctx, in.Username, in.Email); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	var uploaded []media.Asset
	now := s.deps.now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if in.AvatarPath != "" {
		asset, err := s.deps.upload(ctx, in.AvatarPath, media.KindImage, "avatar")
		if err != nil {
			return models.User{}, err
		}
		uploaded = append(uploaded, asset)
		user.Avatar = asset.URL
	}
	if in.CoverImagePath != "" {
		asset, err := s.deps.upload(ctx, in.CoverImagePath, media.KindImage, "cover image")
		if err != nil {
			s.deps.compensate(ctx, uploaded...)
			return models.User{}, err
		}
		uploaded = append(uploaded, asset)
		user.CoverImage = asset.URL
	}

	if err := s.deps.Users.Create(ctx, user); err != nil {
		s.deps.compensate(ctx, uploaded...)
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, conflict("User with email or username already exists")
		}
		return models.User{}, err
	}

	logging.FromContext(ctx).Info().Str("userId", user.ID).Msg("user registered")
	return user, nil
}

func (s *Identity) ensureAvailable(ctx context.Context, username, email string) error {
	for _, find := range []func() (models.User, error){
		func() (models.User, error) { return s.deps.Users.FindByUsername(ctx, username) },
		func() (models.User, error) { return s.deps.Users.FindByEmail(ctx, email) },
	} {
		_, err := find()
		if err == nil {
			return conflict("User with email or username already exists")
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Login verifies credentials and opens a new session, replacing any earlier one.
func (s *Identity) Login(ctx context.Context, in LoginInput) (models.User, models.SessionTokens, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" && email == "" {
		return models.User{}, models.SessionTokens{}, invalid("username", "username or email is required")
	}
	if in.Password == "" {
		return models.User{}, models.SessionTokens{}, invalid("password", "password is required")
	}

	var (
		user models.User
		err  error
	)
	if username != "" {
		user, err = s.deps.Users.FindByUsername(ctx, username)
	} else {
		user, err = s.deps.Users.FindByEmail(ctx, email)
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, models.SessionTokens{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		logging.FromContext(ctx).Warn().Str("userId", user.ID).Msg("login password mismatch")
		return models.User{}, models.SessionTokens{}, ErrInvalidCredentials
	}

	tokens, err := s.deps.Tokens.Issue(ctx, user.ID)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}
	return user, tokens, nil
}

// Refresh rotates the session. The presented token must be the one stored
// for its user.
func (s *Identity) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return models.SessionTokens{}, unauthorized("Unauthorized request")
	}
	tokens, _, err := s.deps.Tokens.Refresh(ctx, refreshToken)
	switch {
	case errors.Is(err, auth.ErrRefreshTokenExpired):
		return models.SessionTokens{}, unauthorized("Refresh token is expired")
	case errors.Is(err, auth.ErrSessionNotFound):
		return models.SessionTokens{}, unauthorized("Refresh token is expired or used")
	case errors.Is(err, auth.ErrInvalidToken):
		return models.SessionTokens{}, unauthorized("Invalid refresh token")
	case err != nil:
		return models.SessionTokens{}, err
	}
	return tokens, nil
}

// Authenticate resolves the user behind an access token.
func (s *Identity) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	if accessToken == "" {
		return models.User{}, unauthorized("Unauthorized request")
	}
	userID, err := s.deps.Tokens.Verify(accessToken)
	if err != nil {
		return models.User{}, unauthorized("Invalid access token")
	}
	user, err := s.deps.Users.FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, unauthorized("Invalid access token")
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Logout empties the user's session slot.
func (s *Identity) Logout(ctx context.Context, userID string) error {
	return s.deps.Tokens.Revoke(ctx, userID)
}

// ChangePasswordInput carries the old and new passwords.
type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// ChangePassword replaces the password after checking the old one.
func (s *Identity) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := check(in); err != nil {
		return err
	}
	user, err := s.deps.Users.FindByID(ctx, userID)
	if err != nil {
		return lookup(err, "User", "load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.OldPassword)); err != nil {
		return invalid("oldPassword", "Invalid old password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return lookup(s.deps.Users.UpdatePassword(ctx, userID, string(hash), s.deps.now()), "User", "update password")
}

// UpdateAccountInput carries the editable profile fields.
type UpdateAccountInput struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

// UpdateAccount changes the display name and email.
func (s *Identity) UpdateAccount(ctx context.Context, userID string, in UpdateAccountInput) (models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := check(in); err != nil {
		return models.User{}, err
	}
	user, err := s.deps.Users.UpdateProfile(ctx, userID, in.FullName, in.Email, s.deps.now())
	if errors.Is(err, repositories.ErrConflict) {
		return models.User{}, conflict("Email is already in use")
	}
	return user, lookup(err, "User", "update profile")
}

// UpdateAvatar uploads a new avatar image.
func (s *Identity) UpdateAvatar(ctx context.Context, userID, localPath string) (models.User, error) {
	return s.updateImage(ctx, userID, localPath, "avatar", s.deps.Users.UpdateAvatar)
}

// UpdateCoverImage uploads a new cover image.
func (s *Identity) UpdateCoverImage(ctx context.Context, userID, localPath string) (models.User, error) {
	return s.updateImage(ctx, userID, localPath, "coverImage", s.deps.Users.UpdateCoverImage)
}

type imageUpdater func(ctx context.Context, id, url string, at time.Time) (models.User, error)

func (s *Identity) updateImage(ctx context.Context, userID, localPath, field string, store imageUpdater) (models.User, error) {
	if localPath == "" {
		return models.User{}, invalid(field, field+" file is missing")
	}
	current, err := s.deps.Users.FindByID(ctx, userID)
	if err != nil {
		removeFiles(ctx, localPath)
		return models.User{}, lookup(err, "User", "load user")
	}
	previous := current.Avatar
	if field == "coverImage" {
		previous = current.CoverImage
	}

	asset, err := s.deps.upload(ctx, localPath, media.KindImage, field)
	if err != nil {
		return models.User{}, err
	}
	user, err := store(ctx, userID, asset.URL, s.deps.now())
	if err != nil {
		s.deps.compensate(ctx, asset)
		return models.User{}, lookup(err, "User", "update "+field)
	}
	if previous != asset.URL {
		s.deps.discard(ctx, previous, media.KindImage)
	}
	return user, nil
}

// AddToWatchHistory records that the user watched a video.
func (s *Identity) AddToWatchHistory(ctx context.Context, userID, videoID string) error {
	if err := requireID(videoID, "videoId", "video"); err != nil {
		return err
	}
	if _, err := s.deps.Videos.FindByID(ctx, videoID); err != nil {
		return lookup(err, "Video", "load video")
	}
	return lookup(s.deps.Users.AddToWatchHistory(ctx, userID, videoID, s.deps.now()), "Video", "add to watch history")
}
