package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/assist"
)

// AssistHandler exposes the text assistant.
type AssistHandler struct {
	Assistant TextAssistant
}

type assistRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Correct handles POST /ai/grammar-correct.
func (h AssistHandler) Correct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req assistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if h.Assistant == nil {
		respondError(ctx, w, assist.ErrUnavailable)
		return
	}

	result, err := h.Assistant.Correct(ctx, req.Title, req.Description)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	message := "Text corrected successfully"
	if !result.Processed {
		message = "Nothing to process"
	}
	respondData(ctx, w, http.StatusOK, message, result)
}
