package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
)

// ContentInput is the body of a comment or tweet.
type ContentInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

func (in ContentInput) trimmed() ContentInput {
	in.Content = strings.TrimSpace(in.Content)
	return in
}

// Comments manages comments on videos.
type Comments struct {
	deps Deps
}

// Create adds a comment to a video.
func (s *Comments) Create(ctx context.Context, actorID, videoID string, in ContentInput) (models.Comment, error) {
	if err := requireID(videoID, "videoId", "video"); err != nil {
		return models.Comment{}, err
	}
	in = in.trimmed()
	if err := check(in); err != nil {
		return models.Comment{}, err
	}
	if _, err := s.deps.Videos.FindByID(ctx, videoID); err != nil {
		return models.Comment{}, lookup(err, "Video", "load video")
	}

	now := s.deps.now()
	comment := models.Comment{ID: uuid.NewString(), VideoID: videoID, OwnerID: actorID, Content: in.Content, CreatedAt: now, UpdatedAt: now}
	if err := s.deps.Comments.Create(ctx, comment); err != nil {
		return models.Comment{}, lookup(err, "Video", "create comment")
	}
	return comment, nil
}

// Update replaces the text of the actor's comment.
func (s *Comments) Update(ctx context.Context, actorID, commentID string, in ContentInput) (models.Comment, error) {
	if err := s.authorize(ctx, actorID, commentID); err != nil {
		return models.Comment{}, err
	}
	in = in.trimmed()
	if err := check(in); err != nil {
		return models.Comment{}, err
	}
	updated, err := s.deps.Comments.UpdateContent(ctx, commentID, in.Content, s.deps.now())
	return updated, lookup(err, "Comment", "update comment")
}

// Delete removes the actor's comment. Likes on it stay behind and are ignored.
func (s *Comments) Delete(ctx context.Context, actorID, commentID string) error {
	if err := s.authorize(ctx, actorID, commentID); err != nil {
		return err
	}
	return lookup(s.deps.Comments.Delete(ctx, commentID), "Comment", "delete comment")
}

func (s *Comments) authorize(ctx context.Context, actorID, commentID string) error {
	if err := requireID(commentID, "commentId", "comment"); err != nil {
		return err
	}
	comment, err := s.deps.Comments.FindByID(ctx, commentID)
	if err != nil {
		return lookup(err, "Comment", "load comment")
	}
	return requireOwner(comment.OwnerID, actorID, "comment")
}

// Tweets manages channel posts.
type Tweets struct {
	deps Deps
}

// Create posts a tweet.
func (s *Tweets) Create(ctx context.Context, actorID string, in ContentInput) (models.Tweet, error) {
	in = in.trimmed()
	if err := check(in); err != nil {
		return models.Tweet{}, err
	}
	now := s.deps.now()
	tweet := models.Tweet{ID: uuid.NewString(), OwnerID: actorID, Content: in.Content, CreatedAt: now, UpdatedAt: now}
	if err := s.deps.Tweets.Create(ctx, tweet); err != nil {
		return models.Tweet{}, lookup(err, "User", "create tweet")
	}
	return tweet, nil
}

// Update replaces the text of the actor's tweet.
func (s *Tweets) Update(ctx context.Context, actorID, tweetID string, in ContentInput) (models.Tweet, error) {
	if err := s.authorize(ctx, actorID, tweetID); err != nil {
		return models.Tweet{}, err
	}
	in = in.trimmed()
	if err := check(in); err != nil {
		return models.Tweet{}, err
	}
	updated, err := s.deps.Tweets.UpdateContent(ctx, tweetID, in.Content, s.deps.now())
	return updated, lookup(err, "Tweet", "update tweet")
}

// Delete removes the actor's tweet.
func (s *Tweets) Delete(ctx context.Context, actorID, tweetID string) error {
	if err := s.authorize(ctx, actorID, tweetID); err != nil {
		return err
	}
	return lookup(s.deps.Tweets.Delete(ctx, tweetID), "Tweet", "delete tweet")
}

func (s *Tweets) authorize(ctx context.Context, actorID, tweetID string) error {
	if err := requireID(tweetID, "tweetId", "tweet"); err != nil {
		return err
	}
	tweet, err := s.deps.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		return lookup(err, "Tweet", "load tweet")
	}
	return requireOwner(tweet.OwnerID, actorID, "tweet")
}

// Playlists manages playlists and their members.
type Playlists struct {
	deps Deps
}

// CreatePlaylistInput names a new playlist.
type CreatePlaylistInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=5000"`
}

// UpdatePlaylistInput changes only the fields that are set.
type UpdatePlaylistInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Create makes an empty playlist.
func (s *Playlists) Create(ctx context.Context, actorID string, in CreatePlaylistInput) (models.Playlist, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := check(in); err != nil {
		return models.Playlist{}, err
	}
	now := s.deps.now()
	p := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     actorID,
		Name:        in.Name,
		Description: in.Description,
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.deps.Playlists.Create(ctx, p); err != nil {
		return models.Playlist{}, lookup(err, "User", "create playlist")
	}
	return p, nil
}

// Update changes name and/or description.
func (s *Playlists) Update(ctx context.Context, actorID, playlistID string, in UpdatePlaylistInput) (models.Playlist, error) {
	p, err := s.authorize(ctx, actorID, playlistID)
	if err != nil {
		return models.Playlist{}, err
	}
	if in.Name == nil && in.Description == nil {
		return models.Playlist{}, invalid("name", "name or description is required")
	}

	name, description := p.Name, p.Description
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		description = strings.TrimSpace(*in.Description)
	}
	if err := check(CreatePlaylistInput{Name: name, Description: description}); err != nil {
		return models.Playlist{}, err
	}

	updated, err := s.deps.Playlists.UpdateDetails(ctx, playlistID, name, description, s.deps.now())
	return updated, lookup(err, "Playlist", "update playlist")
}

// Delete removes the actor's playlist.
func (s *Playlists) Delete(ctx context.Context, actorID, playlistID string) error {
	if _, err := s.authorize(ctx, actorID, playlistID); err != nil {
		return err
	}
	return lookup(s.deps.Playlists.Delete(ctx, playlistID), "Playlist", "delete playlist")
}

// AddVideo appends a video; adding one that is already present is a no-op.
func (s *Playlists) AddVideo(ctx context.Context, actorID, playlistID, videoID string) (models.Playlist, error) {
	if err := requireID(videoID, "videoId", "video"); err != nil {
		return models.Playlist{}, err
	}
	if _, err := s.authorize(ctx, actorID, playlistID); err != nil {
		return models.Playlist{}, err
	}
	if _, err := s.deps.Videos.FindByID(ctx, videoID); err != nil {
		return models.Playlist{}, lookup(err, "Video", "load video")
	}
	p, err := s.deps.Playlists.AddVideo(ctx, playlistID, videoID, s.deps.now())
	return p, lookup(err, "Playlist", "add video to playlist")
}

// RemoveVideo drops a video; removing one that is absent is a no-op.
func (s *Playlists) RemoveVideo(ctx context.Context, actorID, playlistID, videoID string) (models.Playlist, error) {
	if err := requireID(videoID, "videoId", "video"); err != nil {
		return models.Playlist{}, err
	}
	if _, err := s.authorize(ctx, actorID, playlistID); err != nil {
		return models.Playlist{}, err
	}
	p, err := s.deps.Playlists.RemoveVideo(ctx, playlistID, videoID, s.deps.now())
	return p, lookup(err, "Playlist", "remove video from playlist")
}

func (s *Playlists) authorize(ctx context.Context, actorID, playlistID string) (models.Playlist, error) {
	if err := requireID(playlistID, "playlistId", "playlist"); err != nil {
		return models.Playlist{}, err
	}
	p, err := s.deps.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, lookup(err, "Playlist", "load playlist")
	}
	return p, requireOwner(p.OwnerID, actorID, "playlist")
}
