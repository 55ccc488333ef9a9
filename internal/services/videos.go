package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
)

// Videos manages uploads and owner-only changes to videos.
type Videos struct {
	deps Deps
}

// PublishInput describes a new video. Paths point at spooled local files.
type PublishInput struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"required,max=5000"`
	VideoPath     string `json:"videoFile" validate:"required"`
	ThumbnailPath string `json:"thumbnail" validate:"required"`
}

// Publish uploads the video and thumbnail and stores the record. Nothing is
// stored if either upload fails, and uploaded assets are removed again.
func (s *Videos) Publish(ctx context.Context, actorID string, in PublishInput) (models.Video, error) {
	defer removeFiles(ctx, in.VideoPath, in.ThumbnailPath)

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := check(in); err != nil {
		return models.Video{}, err
	}

	var duration float64
	if s.deps.Prober != nil {
		d, err := s.deps.Prober.Duration(ctx, in.VideoPath)
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("could not read video duration")
		} else {
			duration = d
		}
	}

	videoAsset, err := s.deps.upload(ctx, in.VideoPath, media.KindVideo, "video file")
	if err != nil {
		return models.Video{}, err
	}
	thumbAsset, err := s.deps.upload(ctx, in.ThumbnailPath, media.KindImage, "thumbnail")
	if err != nil {
		s.deps.compensate(ctx, videoAsset)
		return models.Video{}, err
	}

	now := s.deps.now()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     actorID,
		Title:       in.Title,
		Description: in.Description,
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbAsset.URL,
		Duration:    duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.deps.Videos.Create(ctx, video); err != nil {
		s.deps.compensate(ctx, videoAsset, thumbAsset)
		return models.Video{}, lookup(err, "User", "create video")
	}

	logging.FromContext(ctx).Info().Str("videoId", video.ID).Float64("duration", duration).Msg("video published")
	return video, nil
}

// UpdateVideoInput changes only the fields that are set.
type UpdateVideoInput struct {
	Title         *string
	Description   *string
	ThumbnailPath string
}

// Update edits title, description and optionally replaces the thumbnail.
func (s *Videos) Update(ctx context.Context, actorID, videoID string, in UpdateVideoInput) (models.Video, error) {
	defer removeFiles(ctx, in.ThumbnailPath)

	video, err := s.authorize(ctx, actorID, videoID)
	if err != nil {
		return models.Video{}, err
	}
	if in.Title == nil && in.Description == nil && in.ThumbnailPath == "" {
		return models.Video{}, invalid("title", "title, description or thumbnail is required")
	}
	if in.Title != nil {
		if video.Title = strings.TrimSpace(*in.Title); video.Title == "" {
			return models.Video{}, invalid("title", "title is required")
		}
	}
	if in.Description != nil {
		if video.Description = strings.TrimSpace(*in.Description); video.Description == "" {
			return models.Video{}, invalid("description", "description is required")
		}
	}

	var thumb media.Asset
	previous := video.Thumbnail
	if in.ThumbnailPath != "" {
		if thumb, err = s.deps.upload(ctx, in.ThumbnailPath, media.KindImage, "thumbnail"); err != nil {
			return models.Video{}, err
		}
		video.Thumbnail = thumb.URL
	}

	video.UpdatedAt = s.deps.now()
	if err := s.deps.Videos.Update(ctx, video); err != nil {
		s.deps.compensate(ctx, thumb)
		return models.Video{}, lookup(err, "Video", "update video")
	}
	if thumb.URL != "" && previous != thumb.URL {
		s.deps.discard(ctx, previous, media.KindImage)
	}
	return video, nil
}

// Delete removes the actor's video. Comments, likes and playlist entries
// referring to it are left in place and skipped by read views.
func (s *Videos) Delete(ctx context.Context, actorID, videoID string) error {
	if _, err := s.authorize(ctx, actorID, videoID); err != nil {
		return err
	}
	return lookup(s.deps.Videos.Delete(ctx, videoID), "Video", "delete video")
}

// TogglePublish flips the publish flag and returns the new value.
func (s *Videos) TogglePublish(ctx context.Context, actorID, videoID string) (bool, error) {
	if _, err := s.authorize(ctx, actorID, videoID); err != nil {
		return false, err
	}
	published, err := s.deps.Videos.TogglePublish(ctx, videoID, s.deps.now())
	return published, lookup(err, "Video", "toggle publish")
}

// IncrementViews adds one view and returns the new total.
func (s *Videos) IncrementViews(ctx context.Context, videoID string) (int64, error) {
	if err := requireID(videoID, "videoId", "video"); err != nil {
		return 0, err
	}
	views, err := s.deps.Videos.IncrementViews(ctx, videoID)
	return views, lookup(err, "Video", "increment views")
}

func (s *Videos) authorize(ctx context.Context, actorID, videoID string) (models.Video, error) {
	if err := requireID(videoID, "videoId", "video"); err != nil {
		return models.Video{}, err
	}
	video, err := s.deps.Videos.FindByID(ctx, videoID)
	if err != nil {
		return models.Video{}, lookup(err, "Video", "load video")
	}
	return video, requireOwner(video.OwnerID, actorID, "video")
}
