package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/services"
)

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	Identity     *services.Identity
	Views        *services.Views
	Uploads      Uploads
	Limiter      RateLimiter
	CookieSecure bool
}

type sessionResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Register handles POST /users/register. Accepts JSON, or multipart with
// optional avatar and coverImage files.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !allowRequest(h.Limiter, r, "register") {
		respondMessage(ctx, w, http.StatusTooManyRequests, "Too many requests, try again later")
		return
	}

	var in services.RegisterInput
	if isMultipart(r) {
		if err := h.Uploads.parse(w, r); err != nil {
			respondError(ctx, w, err)
			return
		}
		defer cleanupForm(r)
		in.Username = r.FormValue("username")
		in.Email = r.FormValue("email")
		in.FullName = r.FormValue("fullName")
		in.Password = r.FormValue("password")
		paths, err := h.Uploads.spoolAll(r, "avatar", "coverImage")
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		in.AvatarPath, in.CoverImagePath = paths[0], paths[1]
	} else if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Identity.Register(ctx, in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusCreated, "User registered successfully", user)
}

// Login handles POST /users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !allowRequest(h.Limiter, r, "login") {
		respondMessage(ctx, w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	}

	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}
	user, tokens, err := h.Identity.Login(ctx, in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	setSessionCookies(w, tokens, h.CookieSecure)
	respondData(ctx, w, http.StatusOK, "User logged in successfully", sessionResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Refresh handles POST /users/refresh-token. The refresh token comes from
// the cookie or the JSON body.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !allowRequest(h.Limiter, r, "refresh") {
		respondMessage(ctx, w, http.StatusTooManyRequests, "Too many requests, try again later")
		return
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		body.RefreshToken = c.Value
	}
	if body.RefreshToken == "" {
		if err := decodeJSON(w, r, &body); err != nil {
			respondError(ctx, w, err)
			return
		}
	}
	if strings.TrimSpace(body.RefreshToken) == "" {
		respondMessage(ctx, w, http.StatusUnauthorized, "Unauthorized request")
		return
	}

	tokens, err := h.Identity.Refresh(ctx, body.RefreshToken)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	setSessionCookies(w, tokens, h.CookieSecure)
	respondData(ctx, w, http.StatusOK, "Access token refreshed", tokens)
}

// Logout handles POST /users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Identity.Logout(ctx, viewerID(r)); err != nil {
		respondError(ctx, w, err)
		return
	}
	clearSessionCookies(w, h.CookieSecure)
	respondData(ctx, w, http.StatusOK, "User logged out", struct{}{})
}

// ChangePassword handles POST /users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}
	if err := h.Identity.ChangePassword(ctx, viewerID(r), in); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Password changed successfully", struct{}{})
}

// CurrentUser handles GET /users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	respondData(r.Context(), w, http.StatusOK, "Current user fetched successfully", user)
}

// UpdateAccount handles PATCH /users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.UpdateAccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}
	user, err := h.Identity.UpdateAccount(ctx, viewerID(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Account details updated successfully", user)
}

// UpdateAvatar handles PATCH /users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.Identity.UpdateAvatar, "Avatar updated successfully")
}

// UpdateCoverImage handles PATCH /users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.Identity.UpdateCoverImage, "Cover image updated successfully")
}

func (h UserHandler) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID, localPath string) (models.User, error),
	message string,
) {
	ctx := r.Context()
	if err := h.Uploads.parse(w, r); err != nil {
		respondError(ctx, w, err)
		return
	}
	defer cleanupForm(r)

	path, err := h.Uploads.spool(r, field)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if path == "" {
		respondError(ctx, w, &services.ValidationError{Field: field, Message: field + " file is missing"})
		return
	}
	user, err := update(ctx, viewerID(r), path)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, message, user)
}

// Channel handles GET /users/c/{username}.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.Views.ChannelProfile(ctx, chi.URLParam(r, "username"), viewerID(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "User channel fetched successfully", profile)
}

// WatchHistory handles GET /users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	history, err := h.Views.WatchHistory(ctx, viewerID(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Watch history fetched successfully", history)
}

// AddToWatchHistory handles POST /users/history/{videoId}.
func (h UserHandler) AddToWatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Identity.AddToWatchHistory(ctx, viewerID(r), chi.URLParam(r, "videoId")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Video added to watch history", struct{}{})
}
