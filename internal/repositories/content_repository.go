package repositories

import (
	"context"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// CommentRepository exposes data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) (models.Comment, error)
	Delete(ctx context.Context, id string) error
	// ListByVideo pages through comments of a video, newest first.
	ListByVideo(ctx context.Context, videoID string, opts models.ListOptions) ([]models.Comment, int64, error)
}

// TweetRepository exposes data access for tweets.
type TweetRepository interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
	// ListByOwner returns tweets of a user, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
}

// PlaylistRepository exposes data access for playlists and their members.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist models.Playlist) error
	// FindByID loads a playlist including its video ids in insertion order.
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	UpdateDetails(ctx context.Context, id, name, description string, at time.Time) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	// AddVideo appends videoID unless it is already present.
	AddVideo(ctx context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error)
	// RemoveVideo drops videoID if present.
	RemoveVideo(ctx context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error)
}
