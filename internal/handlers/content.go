package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/services"
)

// CommentHandler implements comment endpoints.
type CommentHandler struct {
	Comments *services.Comments
	Views    *services.Views
}

// List handles GET /comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.Views.Comments(ctx, chi.URLParam(r, "videoId"), viewerID(r), listOptions(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Comments fetched successfully", page)
}

// Create handles POST /comments/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.ContentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}
	comment, err := h.Comments.Create(ctx, viewerID(r), chi.URLParam(r, "videoId"), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusCreated, "Comment added successfully", comment)
}

// Update handles PATCH /comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.ContentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}
	comment, err := h.Comments.Update(ctx, viewerID(r), chi.URLParam(r, "commentId"), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Comment updated successfully", comment)
}

// Delete handles DELETE /comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Comments.Delete(ctx, viewerID(r), chi.URLParam(r, "commentId")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Comment deleted successfully", struct{}{})
}

// TweetHandler implements tweet endpoints.
type TweetHandler struct {
	Tweets *services.Tweets
	Views  *services.Views
}

// Create handles POST /tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.ContentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}
	tweet, err := h.Tweets.Create(ctx, viewerID(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusCreated, "Tweet created successfully", tweet)
}

// ListByUser handles GET /tweets/user/{userId}.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tweets, err := h.Views.Tweets(ctx, chi.URLParam(r, "userId"), viewerID(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Tweets fetched successfully", tweets)
}

// Update handles PATCH /tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.ContentInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}
	tweet, err := h.Tweets.Update(ctx, viewerID(r), chi.URLParam(r, "tweetId"), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Tweet updated successfully", tweet)
}

// Delete handles DELETE /tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Tweets.Delete(ctx, viewerID(r), chi.URLParam(r, "tweetId")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Tweet deleted successfully", struct{}{})
}

// PlaylistHandler implements playlist endpoints.
type PlaylistHandler struct {
	Playlists *services.Playlists
	Views     *services.Views
}

// Create handles POST /playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.CreatePlaylistInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}
	playlist, err := h.Playlists.Create(ctx, viewerID(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusCreated, "Playlist created successfully", playlist)
}

// ListByUser handles GET /playlists/user/{userId}.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlists, err := h.Views.Playlists(ctx, chi.URLParam(r, "userId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Playlists fetched successfully", playlists)
}

// Get handles GET /playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.Views.Playlist(ctx, chi.URLParam(r, "playlistId"), viewerID(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Playlist fetched successfully", view)
}

// Update handles PATCH /playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.UpdatePlaylistInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(ctx, w, err)
		return
	}
	playlist, err := h.Playlists.Update(ctx, viewerID(r), chi.URLParam(r, "playlistId"), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Playlist updated successfully", playlist)
}

// Delete handles DELETE /playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Playlists.Delete(ctx, viewerID(r), chi.URLParam(r, "playlistId")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Playlist deleted successfully", struct{}{})
}

// AddVideo handles PATCH /playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, err := h.Playlists.AddVideo(ctx, viewerID(r), chi.URLParam(r, "playlistId"), chi.URLParam(r, "videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Video added to playlist", playlist)
}

// RemoveVideo handles PATCH /playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, err := h.Playlists.RemoveVideo(ctx, viewerID(r), chi.URLParam(r, "playlistId"), chi.URLParam(r, "videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Video removed from playlist", playlist)
}
