package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/services"
)

// DashboardHandler serves channel statistics.
type DashboardHandler struct {
	Views *services.Views
}

// Stats handles GET /dashboard/stats/{channelId}.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.Views.ChannelStats(ctx, chi.URLParam(r, "channelId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Channel stats fetched successfully", stats)
}

// Videos handles GET /dashboard/videos/{channelId}.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := h.Views.ChannelVideos(ctx, chi.URLParam(r, "channelId"), viewerID(r), listOptions(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondData(ctx, w, http.StatusOK, "Channel videos fetched successfully", page)
}
