package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vidtube/backend/internal/assist"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/services"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 16 << 10

// envelope is the shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error().Err(err).Int("status", status).Msg("encode response body")
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error().Int("status", status).Interface("response", payload).Msg("request failed")
	case status >= http.StatusBadRequest:
		logger.Warn().Int("status", status).Interface("response", payload).Msg("request returned client error")
	}
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	respondJSON(ctx, w, status, envelope{Success: true, Message: message, Data: data})
}

func respondMessage(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, envelope{Success: false, Message: message})
}

// respondError maps service errors onto status codes. Messages of unexpected
// errors are not sent to the client.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(ctx).Error().Err(err).Msg("request error")
	}
	respondMessage(ctx, w, status, message)
}

func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "Request body is too large"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid user credentials"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, assist.ErrUnavailable):
		return http.StatusBadGateway, "Text assist is unavailable"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return &services.ValidationError{Field: "body", Message: "Invalid request body"}
	}
	return nil
}

// listOptions reads page, limit, sortBy and sortType from the query string.
func listOptions(r *http.Request) models.ListOptions {
	q := r.URL.Query()
	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	limit, _ := strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	return models.NewListOptions(page, limit, strings.TrimSpace(q.Get("sortBy")), strings.TrimSpace(q.Get("sortType")))
}
