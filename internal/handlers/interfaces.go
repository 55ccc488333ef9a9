package handlers

import (
	"context"

	"github.com/vidtube/backend/internal/assist"
	"github.com/vidtube/backend/internal/models"
)

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// TextAssistant corrects or completes a video title and description.
type TextAssistant interface {
	Correct(ctx context.Context, title, description string) (assist.Result, error)
}

// HealthCheck probes one dependency, such as the database.
type HealthCheck func(ctx context.Context) error
