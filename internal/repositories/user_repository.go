package repositories

import (
	"context"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	// FindByIDs returns the users that exist among ids, keyed by id.
	FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	UpdateProfile(ctx context.Context, id, fullName, email string, at time.Time) (models.User, error)
	UpdateAvatar(ctx context.Context, id, url string, at time.Time) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, url string, at time.Time) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	// AddToWatchHistory moves videoID to the front of the history, dropping
	// any earlier occurrence and everything beyond WatchHistoryLimit.
	AddToWatchHistory(ctx context.Context, userID, videoID string, at time.Time) error
	// WatchHistory lists video ids, most recently watched first.
	WatchHistory(ctx context.Context, userID string) ([]string, error)
}
