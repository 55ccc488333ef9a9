package models

import "time"

// OwnerProfile is the public subset of a user shown next to content.
type OwnerProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// ProfileOf projects the public owner fields of u.
func ProfileOf(u User) OwnerProfile {
	return OwnerProfile{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

// VideoView is a video joined with its owner and like aggregates.
type VideoView struct {
	Video
	Owner      OwnerProfile `json:"owner"`
	LikesCount int64        `json:"likesCount"`
	IsLiked    bool         `json:"isLiked"`
}

// VideoWithOwner is the compact video shape used inside other views.
type VideoWithOwner struct {
	Video
	Owner OwnerProfile `json:"owner"`
}

// CommentView is a comment joined with its owner and like aggregates.
type CommentView struct {
	Comment
	Owner      OwnerProfile `json:"owner"`
	LikesCount int64        `json:"likesCount"`
	IsLiked    bool         `json:"isLiked"`
}

// TweetView is a tweet joined with its owner and like aggregates.
type TweetView struct {
	Tweet
	Owner      OwnerProfile `json:"owner"`
	LikesCount int64        `json:"likesCount"`
	IsLiked    bool         `json:"isLiked"`
}

// ChannelProfile is the public page of a user.
type ChannelProfile struct {
	ID                        string `json:"id"`
	Username                  string `json:"username"`
	FullName                  string `json:"fullName"`
	Email                     string `json:"email"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

// ChannelStats are the dashboard totals of a channel.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalViews       int64 `json:"totalViews"`
}

// PlaylistView is a playlist with its owner and resolved videos in order.
type PlaylistView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Owner       OwnerProfile     `json:"owner"`
	Videos      []VideoWithOwner `json:"videos"`
	TotalVideos int              `json:"totalVideos"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// PlaylistSummary is a playlist entry in a per-user listing.
type PlaylistSummary struct {
	Playlist
	TotalVideos int `json:"totalVideos"`
}

// SubscriberView is a user subscribed to a channel.
type SubscriberView struct {
	OwnerProfile
	SubscriptionsCount int64 `json:"subscriptionsCount"`
}

// SubscribedChannelView is a channel the current user follows.
type SubscribedChannelView struct {
	OwnerProfile
	SubscribersCount int64 `json:"subscribersCount"`
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
}
