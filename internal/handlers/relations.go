package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/services"
)

// RelationHandler implements likes and subscriptions.
type RelationHandler struct {
	Relations *services.Relations
	Views     *services.Views
}

func (h RelationHandler) toggle(kind models.RelationKind, param, onMessage, offMessage string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		active, err := h.Relations.Toggle(ctx, viewerID(r), kind, chi.URLParam(r, param))
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		message := offMessage
		if active {
			message = onMessage
		}
		respondData(ctx, w, http.StatusOK, message, map[string]bool{"active": active})
	}
}

func (h RelationHandler) check(kind models.RelationKind, param, field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		active, err := h.Relations.IsActive(ctx, viewerID(r), kind, chi.URLParam(r, param))
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondData(ctx, w, http.StatusOK, "Status fetched successfully", map[string]bool{field: active})
	}
}

// ToggleVideoLike handles POST /likes/toggle/v/{videoId}.
func (h RelationHandler) ToggleVideoLike() http.HandlerFunc {
	return h.toggle(models.RelationVideoLike, "videoId", "Video liked", "Video unliked")
}

// ToggleCommentLike handles POST /likes/toggle/c/{commentId}.
func (h RelationHandler) ToggleCommentLike() http.HandlerFunc {
	return h.toggle(models.RelationCommentLike, "commentId", "Comment liked", "Comment unliked")
}

// ToggleTweetLike handles POST /likes/toggle/t/{tweetId}.
func (h RelationHandler) ToggleTweetLike() http.HandlerFunc {
	return h.toggle(models.RelationTweetLike, "tweetId", "Tweet liked", "Tweet unliked")
}

// ToggleSubscription handles POST /subscriptions/c/{channelId}/toggle.
func (h RelationHandler) ToggleSubscription() http.HandlerFunc {
	return h.toggle(models.RelationSubscription, "channelId", "Subscribed successfully", "Unsubscribed successfully")
}

// IsVideoLiked handles GET /likes/check/v/{videoId}.
func (h RelationHandler) IsVideoLiked() http.HandlerFunc {
	return h.check(models.RelationVideoLike, "videoId", "isLiked")
}

// IsSubscribed handles GET /subscriptions/check/c/{channelId}.
func (h RelationHandler) IsSubscribed() http.HandlerFunc {
	return h.check(models.RelationSubscription, "channelId", "isSubscribed")
}

// LikedVideos handles GET /likes/videos.
func (h RelationHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	videos, err := h.Views.LikedVideos(ctx, viewerID(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Liked videos fetched successfully", videos)
}

// Subscribers handles GET /subscriptions/c/{channelId}/subscribers.
func (h RelationHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscribers, err := h.Views.Subscribers(ctx, chi.URLParam(r, "channelId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Subscribers fetched successfully", subscribers)
}

// SubscribedChannels handles GET /subscriptions/user/subscribed.
func (h RelationHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channels, err := h.Views.SubscribedChannels(ctx, viewerID(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Subscribed channels fetched successfully", channels)
}
