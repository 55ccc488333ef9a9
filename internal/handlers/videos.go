package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/services"
)

// VideoHandler implements video publishing and browsing.
type VideoHandler struct {
	Videos  *services.Videos
	Views   *services.Views
	Uploads Uploads
}

// List handles GET /videos?page&limit&query&sortBy&sortType&userId.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	filter := models.VideoFilter{
		Query:    strings.TrimSpace(q.Get("query")),
		OwnerID:  strings.TrimSpace(q.Get("userId")),
		ViewerID: viewerID(r),
	}
	page, err := h.Views.ListVideos(ctx, filter, listOptions(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Videos fetched successfully", page)
}

// Publish handles multipart POST /videos with title, description, videoFile
// and thumbnail.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Uploads.parse(w, r); err != nil {
		respondError(ctx, w, err)
		return
	}
	defer cleanupForm(r)

	paths, err := h.Uploads.spoolAll(r, "videoFile", "thumbnail")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	video, err := h.Videos.Publish(ctx, viewerID(r), services.PublishInput{
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		VideoPath:     paths[0],
		ThumbnailPath: paths[1],
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusCreated, "Video published successfully", video)
}

// Get handles GET /videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.Views.Video(ctx, chi.URLParam(r, "videoId"), viewerID(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Video fetched successfully", view)
}

// Update handles PATCH /videos/{videoId}. JSON changes title and description;
// multipart may also carry a new thumbnail.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in services.UpdateVideoInput
	if isMultipart(r) {
		if err := h.Uploads.parse(w, r); err != nil {
			respondError(ctx, w, err)
			return
		}
		defer cleanupForm(r)
		if values, ok := r.MultipartForm.Value["title"]; ok && len(values) > 0 {
			in.Title = &values[0]
		}
		if values, ok := r.MultipartForm.Value["description"]; ok && len(values) > 0 {
			in.Description = &values[0]
		}
		path, err := h.Uploads.spool(r, "thumbnail")
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		in.ThumbnailPath = path
	} else {
		var body struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			respondError(ctx, w, err)
			return
		}
		in.Title, in.Description = body.Title, body.Description
	}

	video, err := h.Videos.Update(ctx, viewerID(r), chi.URLParam(r, "videoId"), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Video updated successfully", video)
}

// Delete handles DELETE /videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Videos.Delete(ctx, viewerID(r), chi.URLParam(r, "videoId")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Video deleted successfully", struct{}{})
}

// TogglePublish handles PATCH /videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	published, err := h.Videos.TogglePublish(ctx, viewerID(r), chi.URLParam(r, "videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Publish status toggled", map[string]bool{"isPublished": published})
}

// IncrementViews handles PATCH /videos/{videoId}/views.
func (h VideoHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := h.Videos.IncrementViews(ctx, chi.URLParam(r, "videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "View recorded", map[string]int64{"views": views})
}
