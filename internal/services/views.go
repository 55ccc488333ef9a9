package services

import (
	"context"
	"errors"
	"strings"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// Views assembles read models from batched repository lookups. References to
// records that no longer exist are skipped.
type Views struct {
	deps Deps
}

// Video returns one video with its owner and like aggregates. Unpublished
// videos are only visible to their owner.
func (s *Views) Video(ctx context.Context, videoID, viewerID string) (models.VideoView, error) {
	if err := requireID(videoID, "videoId", "video"); err != nil {
		return models.VideoView{}, err
	}
	video, err := s.deps.Videos.FindByID(ctx, videoID)
	if err != nil {
		return models.VideoView{}, lookup(err, "Video", "load video")
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return models.VideoView{}, notFound("Video")
	}
	composed, err := s.composeVideos(ctx, []models.Video{video}, viewerID)
	if err != nil {
		return models.VideoView{}, err
	}
	if len(composed) == 0 {
		return models.VideoView{}, notFound("Video")
	}
	return composed[0], nil
}

// ListVideos pages through videos visible to the viewer.
func (s *Views) ListVideos(ctx context.Context, filter models.VideoFilter, opts models.ListOptions) (models.Page[models.VideoView], error) {
	opts = opts.Normalize()
	if filter.OwnerID != "" {
		if err := requireID(filter.OwnerID, "userId", "user"); err != nil {
			return models.Page[models.VideoView]{}, err
		}
	}
	videos, total, err := s.deps.Videos.List(ctx, filter, opts)
	if err != nil {
		return models.Page[models.VideoView]{}, err
	}
	items, err := s.composeVideos(ctx, videos, filter.ViewerID)
	if err != nil {
		return models.Page[models.VideoView]{}, err
	}
	return models.Page[models.VideoView]{Items: items, TotalCount: total, Page: opts.Page, Limit: opts.Limit}, nil
}

// ChannelVideos pages through one channel's videos. The owner also sees
// unpublished ones.
func (s *Views) ChannelVideos(ctx context.Context, channelID, viewerID string, opts models.ListOptions) (models.Page[models.VideoView], error) {
	if err := requireID(channelID, "channelId", "channel"); err != nil {
		return models.Page[models.VideoView]{}, err
	}
	if _, err := s.deps.Users.FindByID(ctx, channelID); err != nil {
		return models.Page[models.VideoView]{}, lookup(err, "Channel", "load channel")
	}
	return s.ListVideos(ctx, models.VideoFilter{OwnerID: channelID, ViewerID: viewerID}, opts)
}

// composeVideos joins owners and like aggregates, preserving input order.
func (s *Views) composeVideos(ctx context.Context, videos []models.Video, viewerID string) ([]models.VideoView, error) {
	out := make([]models.VideoView, 0, len(videos))
	if len(videos) == 0 {
		return out, nil
	}
	ids := make([]string, len(videos))
	ownerIDs := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
		ownerIDs[i] = v.OwnerID
	}

	owners, err := s.deps.Users.FindByIDs(ctx, unique(ownerIDs))
	if err != nil {
		return nil, err
	}
	likes, err := s.deps.Relations.CountByTargets(ctx, models.RelationVideoLike, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.activeFor(ctx, viewerID, models.RelationVideoLike, ids)
	if err != nil {
		return nil, err
	}

	for _, v := range videos {
		owner, ok := owners[v.OwnerID]
		if !ok {
			continue
		}
		out = append(out, models.VideoView{
			Video:      v,
			Owner:      models.ProfileOf(owner),
			LikesCount: likes[v.ID],
			IsLiked:    liked[v.ID],
		})
	}
	return out, nil
}

// videosWithOwners resolves ids in order, dropping missing videos and those
// the viewer may not see.
func (s *Views) videosWithOwners(ctx context.Context, ids []string, viewerID string) ([]models.VideoWithOwner, error) {
	out := make([]models.VideoWithOwner, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	videos, err := s.deps.Videos.FindByIDs(ctx, unique(ids))
	if err != nil {
		return nil, err
	}
	ownerIDs := make([]string, 0, len(videos))
	for _, v := range videos {
		ownerIDs = append(ownerIDs, v.OwnerID)
	}
	owners, err := s.deps.Users.FindByIDs(ctx, unique(ownerIDs))
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		v, ok := videos[id]
		if !ok || (!v.IsPublished && v.OwnerID != viewerID) {
			continue
		}
		owner, ok := owners[v.OwnerID]
		if !ok {
			continue
		}
		out = append(out, models.VideoWithOwner{Video: v, Owner: models.ProfileOf(owner)})
	}
	return out, nil
}

func (s *Views) activeFor(ctx context.Context, viewerID string, kind models.RelationKind, ids []string) (map[string]bool, error) {
	if viewerID == "" || len(ids) == 0 {
		return map[string]bool{}, nil
	}
	return s.deps.Relations.ActiveTargets(ctx, viewerID, kind, ids)
}

// ChannelProfile returns the public page of username.
func (s *Views) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.ChannelProfile{}, invalid("username", "username is missing")
	}
	user, err := s.deps.Users.FindByUsername(ctx, username)
	if err != nil {
		return models.ChannelProfile{}, lookup(err, "Channel", "load channel")
	}

	subscribers, err := s.deps.Relations.CountByTargets(ctx, models.RelationSubscription, []string{user.ID})
	if err != nil {
		return models.ChannelProfile{}, err
	}
	following, err := s.deps.Relations.CountByActors(ctx, models.RelationSubscription, []string{user.ID})
	if err != nil {
		return models.ChannelProfile{}, err
	}
	subscribed := false
	if viewerID != "" {
		if subscribed, err = s.deps.Relations.Exists(ctx, viewerID, models.RelationSubscription, user.ID); err != nil {
			return models.ChannelProfile{}, err
		}
	}

	return models.ChannelProfile{
		ID:                        user.ID,
		Username:                  user.Username,
		FullName:                  user.FullName,
		Email:                     user.Email,
		Avatar:                    user.Avatar,
		CoverImage:                user.CoverImage,
		SubscribersCount:          subscribers[user.ID],
		ChannelsSubscribedToCount: following[user.ID],
		IsSubscribed:              subscribed,
	}, nil
}

// ChannelStats returns dashboard totals. A channel without videos reports zeros.
func (s *Views) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	if err := requireID(channelID, "channelId", "channel"); err != nil {
		return models.ChannelStats{}, err
	}
	if _, err := s.deps.Users.FindByID(ctx, channelID); err != nil {
		return models.ChannelStats{}, lookup(err, "Channel", "load channel")
	}
	stats, err := s.deps.Videos.ChannelTotals(ctx, channelID)
	if err != nil {
		return models.ChannelStats{}, err
	}
	subscribers, err := s.deps.Relations.CountByTargets(ctx, models.RelationSubscription, []string{channelID})
	if err != nil {
		return models.ChannelStats{}, err
	}
	stats.TotalSubscribers = subscribers[channelID]
	return stats, nil
}

// Playlist returns a playlist with its owner and videos in playlist order.
func (s *Views) Playlist(ctx context.Context, playlistID, viewerID string) (models.PlaylistView, error) {
	if err := requireID(playlistID, "playlistId", "playlist"); err != nil {
		return models.PlaylistView{}, err
	}
	p, err := s.deps.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		return models.PlaylistView{}, lookup(err, "Playlist", "load playlist")
	}
	return s.composePlaylist(ctx, p, viewerID)
}

func (s *Views) composePlaylist(ctx context.Context, p models.Playlist, viewerID string) (models.PlaylistView, error) {
	owner, err := s.deps.Users.FindByID(ctx, p.OwnerID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return models.PlaylistView{}, err
	}
	videos, err := s.videosWithOwners(ctx, p.VideoIDs, viewerID)
	if err != nil {
		return models.PlaylistView{}, err
	}
	return models.PlaylistView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Owner:       models.ProfileOf(owner),
		Videos:      videos,
		TotalVideos: len(videos),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

// Playlists lists a user's playlists with the number of live videos in each.
func (s *Views) Playlists(ctx context.Context, userID string) ([]models.PlaylistSummary, error) {
	if err := requireID(userID, "userId", "user"); err != nil {
		return nil, err
	}
	if _, err := s.deps.Users.FindByID(ctx, userID); err != nil {
		return nil, lookup(err, "User", "load user")
	}
	playlists, err := s.deps.Playlists.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	var all []string
	for _, p := range playlists {
		all = append(all, p.VideoIDs...)
	}
	existing, err := s.deps.Videos.FindByIDs(ctx, unique(all))
	if err != nil {
		return nil, err
	}

	out := make([]models.PlaylistSummary, 0, len(playlists))
	for _, p := range playlists {
		live := make([]string, 0, len(p.VideoIDs))
		for _, id := range p.VideoIDs {
			if _, ok := existing[id]; ok {
				live = append(live, id)
			}
		}
		p.VideoIDs = live
		out = append(out, models.PlaylistSummary{Playlist: p, TotalVideos: len(live)})
	}
	return out, nil
}

// Comments pages through the comments of a video, newest first.
func (s *Views) Comments(ctx context.Context, videoID, viewerID string, opts models.ListOptions) (models.Page[models.CommentView], error) {
	opts = opts.Normalize()
	if err := requireID(videoID, "videoId", "video"); err != nil {
		return models.Page[models.CommentView]{}, err
	}
	if _, err := s.deps.Videos.FindByID(ctx, videoID); err != nil {
		return models.Page[models.CommentView]{}, lookup(err, "Video", "load video")
	}
	comments, total, err := s.deps.Comments.ListByVideo(ctx, videoID, opts)
	if err != nil {
		return models.Page[models.CommentView]{}, err
	}

	ids := make([]string, len(comments))
	ownerIDs := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		ownerIDs[i] = c.OwnerID
	}
	owners, likes, liked, err := s.contentAggregates(ctx, models.RelationCommentLike, ids, ownerIDs, viewerID)
	if err != nil {
		return models.Page[models.CommentView]{}, err
	}

	items := make([]models.CommentView, 0, len(comments))
	for _, c := range comments {
		owner, ok := owners[c.OwnerID]
		if !ok {
			continue
		}
		items = append(items, models.CommentView{Comment: c, Owner: models.ProfileOf(owner), LikesCount: likes[c.ID], IsLiked: liked[c.ID]})
	}
	return models.Page[models.CommentView]{Items: items, TotalCount: total, Page: opts.Page, Limit: opts.Limit}, nil
}

// Tweets lists a user's tweets, newest first.
func (s *Views) Tweets(ctx context.Context, userID, viewerID string) ([]models.TweetView, error) {
	if err := requireID(userID, "userId", "user"); err != nil {
		return nil, err
	}
	owner, err := s.deps.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, lookup(err, "User", "load user")
	}
	tweets, err := s.deps.Tweets.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(tweets))
	for i, t := range tweets {
		ids[i] = t.ID
	}
	likes, err := s.deps.Relations.CountByTargets(ctx, models.RelationTweetLike, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.activeFor(ctx, viewerID, models.RelationTweetLike, ids)
	if err != nil {
		return nil, err
	}

	profile := models.ProfileOf(owner)
	out := make([]models.TweetView, 0, len(tweets))
	for _, t := range tweets {
		out = append(out, models.TweetView{Tweet: t, Owner: profile, LikesCount: likes[t.ID], IsLiked: liked[t.ID]})
	}
	return out, nil
}

func (s *Views) contentAggregates(ctx context.Context, kind models.RelationKind, ids, ownerIDs []string, viewerID string) (map[string]models.User, map[string]int64, map[string]bool, error) {
	owners, err := s.deps.Users.FindByIDs(ctx, unique(ownerIDs))
	if err != nil {
		return nil, nil, nil, err
	}
	likes, err := s.deps.Relations.CountByTargets(ctx, kind, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	liked, err := s.activeFor(ctx, viewerID, kind, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	return owners, likes, liked, nil
}

// LikedVideos lists videos the actor liked, most recent like first.
func (s *Views) LikedVideos(ctx context.Context, actorID string) ([]models.VideoWithOwner, error) {
	ids, err := s.deps.Relations.ListTargets(ctx, actorID, models.RelationVideoLike)
	if err != nil {
		return nil, err
	}
	return s.videosWithOwners(ctx, ids, actorID)
}

// WatchHistory lists watched videos, most recent first.
func (s *Views) WatchHistory(ctx context.Context, userID string) ([]models.VideoWithOwner, error) {
	ids, err := s.deps.Users.WatchHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.videosWithOwners(ctx, ids, userID)
}

// Subscribers lists the users subscribed to a channel, each with the number
// of channels they follow.
func (s *Views) Subscribers(ctx context.Context, channelID string) ([]models.SubscriberView, error) {
	if err := requireID(channelID, "channelId", "channel"); err != nil {
		return nil, err
	}
	if _, err := s.deps.Users.FindByID(ctx, channelID); err != nil {
		return nil, lookup(err, "Channel", "load channel")
	}
	ids, err := s.deps.Relations.ListActors(ctx, models.RelationSubscription, channelID)
	if err != nil {
		return nil, err
	}
	users, err := s.deps.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.deps.Relations.CountByActors(ctx, models.RelationSubscription, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.SubscriberView, 0, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			continue
		}
		out = append(out, models.SubscriberView{OwnerProfile: models.ProfileOf(u), SubscriptionsCount: counts[id]})
	}
	return out, nil
}

// SubscribedChannels lists the channels actor follows, each with its
// subscriber count.
func (s *Views) SubscribedChannels(ctx context.Context, actorID string) ([]models.SubscribedChannelView, error) {
	ids, err := s.deps.Relations.ListTargets(ctx, actorID, models.RelationSubscription)
	if err != nil {
		return nil, err
	}
	users, err := s.deps.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.deps.Relations.CountByTargets(ctx, models.RelationSubscription, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.SubscribedChannelView, 0, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			continue
		}
		out = append(out, models.SubscribedChannelView{OwnerProfile: models.ProfileOf(u), SubscribersCount: counts[id]})
	}
	return out, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
