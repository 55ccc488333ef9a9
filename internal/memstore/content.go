package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// VideoRepository implements repositories.VideoRepository.
type VideoRepository struct{ s *Store }

// Create stores a new video.
func (r *VideoRepository) Create(_ context.Context, video models.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.videos[video.ID]; ok {
		return repositories.ErrConflict
	}
	if _, ok := r.s.users[video.OwnerID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.videos[video.ID] = video
	return nil
}

// FindByID loads a video by id.
func (r *VideoRepository) FindByID(_ context.Context, id string) (models.Video, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return v, nil
}

// FindByIDs loads every existing video among ids.
func (r *VideoRepository) FindByIDs(_ context.Context, ids []string) (map[string]models.Video, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]models.Video, len(ids))
	for _, id := range ids {
		if v, ok := r.s.videos[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// List returns a filtered, sorted page of videos and the total match count.
func (r *VideoRepository) List(_ context.Context, filter models.VideoFilter, opts models.ListOptions) ([]models.Video, int64, error) {
	opts = opts.Normalize()
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	r.s.mu.RLock()
	matches := make([]models.Video, 0)
	for _, v := range r.s.videos {
		if query != "" && !strings.Contains(strings.ToLower(v.Title), query) {
			continue
		}
		if filter.OwnerID != "" && v.OwnerID != filter.OwnerID {
			continue
		}
		if !v.IsPublished && (filter.ViewerID == "" || v.OwnerID != filter.ViewerID) {
			continue
		}
		matches = append(matches, v)
	}
	r.s.mu.RUnlock()

	slices.SortStableFunc(matches, func(a, b models.Video) int {
		c := compareVideos(a, b, opts.SortBy)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if opts.SortDesc {
			return -c
		}
		return c
	})

	page, total := paginate(matches, opts)
	return page, total, nil
}

func compareVideos(a, b models.Video, field string) int {
	switch field {
	case models.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case models.SortViews:
		return cmp.Compare(a.Views, b.Views)
	case models.SortTitle:
		return cmp.Compare(a.Title, b.Title)
	case models.SortDuration:
		return cmp.Compare(a.Duration, b.Duration)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// Update rewrites the title, description and thumbnail.
func (r *VideoRepository) Update(_ context.Context, video models.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.videos[video.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	v.Title = video.Title
	v.Description = video.Description
	v.Thumbnail = video.Thumbnail
	v.UpdatedAt = video.UpdatedAt
	r.s.videos[video.ID] = v
	return nil
}

// Delete removes a video. References to it are left in place.
func (r *VideoRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.videos, id)
	return nil
}

// IncrementViews adds one view and returns the new total.
func (r *VideoRepository) IncrementViews(_ context.Context, id string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.videos[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	v.Views++
	r.s.videos[id] = v
	return v.Views, nil
}

// TogglePublish flips the publish flag and returns the new value.
func (r *VideoRepository) TogglePublish(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.videos[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	v.IsPublished = !v.IsPublished
	v.UpdatedAt = at
	r.s.videos[id] = v
	return v.IsPublished, nil
}

// ChannelTotals aggregates video, view and like totals for a channel.
func (r *VideoRepository) ChannelTotals(_ context.Context, ownerID string) (models.ChannelStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var stats models.ChannelStats
	owned := make(map[string]bool)
	for _, v := range r.s.videos {
		if v.OwnerID == ownerID {
			stats.TotalVideos++
			stats.TotalViews += v.Views
			owned[v.ID] = true
		}
	}
	for key := range r.s.relations {
		if key.kind == models.RelationVideoLike && owned[key.target] {
			stats.TotalLikes++
		}
	}
	return stats, nil
}

// CommentRepository implements repositories.CommentRepository.
type CommentRepository struct{ s *Store }

// Create stores a new comment.
func (r *CommentRepository) Create(_ context.Context, c models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[c.ID]; ok {
		return repositories.ErrConflict
	}
	if _, ok := r.s.videos[c.VideoID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.comments[c.ID] = c
	return nil
}

// FindByID loads a comment by id.
func (r *CommentRepository) FindByID(_ context.Context, id string) (models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return c, nil
}

// UpdateContent rewrites the comment text.
func (r *CommentRepository) UpdateContent(_ context.Context, id, content string, at time.Time) (models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	c.Content = content
	c.UpdatedAt = at
	r.s.comments[id] = c
	return c, nil
}

// Delete hard-deletes a comment.
func (r *CommentRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.comments, id)
	return nil
}

// ListByVideo returns a page of a video's comments, newest first, and the total.
func (r *CommentRepository) ListByVideo(_ context.Context, videoID string, opts models.ListOptions) ([]models.Comment, int64, error) {
	opts = opts.Normalize()
	r.s.mu.RLock()
	matches := make([]models.Comment, 0)
	for _, c := range r.s.comments {
		if c.VideoID == videoID {
			matches = append(matches, c)
		}
	}
	r.s.mu.RUnlock()

	sortNewestFirst(matches, func(c models.Comment) (time.Time, string) { return c.CreatedAt, c.ID })
	page, total := paginate(matches, opts)
	return page, total, nil
}

// TweetRepository implements repositories.TweetRepository.
type TweetRepository struct{ s *Store }

// Create stores a new tweet.
func (r *TweetRepository) Create(_ context.Context, t models.Tweet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tweets[t.ID]; ok {
		return repositories.ErrConflict
	}
	if _, ok := r.s.users[t.OwnerID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.tweets[t.ID] = t
	return nil
}

// FindByID loads a tweet by id.
func (r *TweetRepository) FindByID(_ context.Context, id string) (models.Tweet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return t, nil
}

// UpdateContent rewrites the tweet text.
func (r *TweetRepository) UpdateContent(_ context.Context, id, content string, at time.Time) (models.Tweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	t.Content = content
	t.UpdatedAt = at
	r.s.tweets[id] = t
	return t, nil
}

// Delete hard-deletes a tweet.
func (r *TweetRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.tweets, id)
	return nil
}

// ListByOwner returns a user's tweets, newest first.
func (r *TweetRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Tweet, error) {
	r.s.mu.RLock()
	out := make([]models.Tweet, 0)
	for _, t := range r.s.tweets {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	r.s.mu.RUnlock()
	sortNewestFirst(out, func(t models.Tweet) (time.Time, string) { return t.CreatedAt, t.ID })
	return out, nil
}

// PlaylistRepository implements repositories.PlaylistRepository.
type PlaylistRepository struct{ s *Store }

func clonePlaylist(p models.Playlist) models.Playlist {
	p.VideoIDs = append([]string{}, p.VideoIDs...)
	return p
}

// Create stores a new, empty playlist.
func (r *PlaylistRepository) Create(_ context.Context, p models.Playlist) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.playlists[p.ID]; ok {
		return repositories.ErrConflict
	}
	if _, ok := r.s.users[p.OwnerID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.playlists[p.ID] = clonePlaylist(p)
	return nil
}

// FindByID loads a playlist and its ordered video ids.
func (r *PlaylistRepository) FindByID(_ context.Context, id string) (models.Playlist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return clonePlaylist(p), nil
}

// UpdateDetails replaces the name and description.
func (r *PlaylistRepository) UpdateDetails(_ context.Context, id, name, description string, at time.Time) (models.Playlist, error) {
	return r.mutate(id, at, func(p *models.Playlist) {
		p.Name = name
		p.Description = description
	})
}

// Delete removes a playlist.
func (r *PlaylistRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.playlists, id)
	return nil
}

// ListByOwner returns a user's playlists, newest first.
func (r *PlaylistRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	r.s.mu.RLock()
	out := make([]models.Playlist, 0)
	for _, p := range r.s.playlists {
		if p.OwnerID == ownerID {
			out = append(out, clonePlaylist(p))
		}
	}
	r.s.mu.RUnlock()
	sortNewestFirst(out, func(p models.Playlist) (time.Time, string) { return p.CreatedAt, p.ID })
	return out, nil
}

// AddVideo appends videoID unless it is already present.
func (r *PlaylistRepository) AddVideo(_ context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error) {
	return r.mutate(playlistID, at, func(p *models.Playlist) {
		if !slices.Contains(p.VideoIDs, videoID) {
			p.VideoIDs = append(p.VideoIDs, videoID)
		}
	})
}

// RemoveVideo drops videoID. Removing an absent video is a no-op.
func (r *PlaylistRepository) RemoveVideo(_ context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error) {
	return r.mutate(playlistID, at, func(p *models.Playlist) {
		p.VideoIDs = slices.DeleteFunc(p.VideoIDs, func(id string) bool { return id == videoID })
	})
}

func (r *PlaylistRepository) mutate(id string, at time.Time, apply func(*models.Playlist)) (models.Playlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	p = clonePlaylist(p)
	apply(&p)
	p.UpdatedAt = at
	r.s.playlists[id] = p
	return clonePlaylist(p), nil
}
