package repositories

import (
	"context"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error)
	// List returns one page of videos matching filter along with the total
	// number of matches. Unpublished videos are only included for their owner.
	List(ctx context.Context, filter models.VideoFilter, opts models.ListOptions) ([]models.Video, int64, error)
	// Update persists title, description and thumbnail.
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	// IncrementViews atomically adds one view and returns the new count.
	IncrementViews(ctx context.Context, id string) (int64, error)
	// TogglePublish atomically flips the publish flag and returns the new value.
	TogglePublish(ctx context.Context, id string, at time.Time) (bool, error)
	// ChannelTotals fills the video, view and like totals of a channel.
	ChannelTotals(ctx context.Context, ownerID string) (models.ChannelStats, error)
}
