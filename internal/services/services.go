package services

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/validation"
)

// TokenManager issues and checks session tokens. *auth.Manager implements it.
type TokenManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, string, error)
	Verify(accessToken string) (string, error)
	Revoke(ctx context.Context, userID string) error
}

// DurationProber reads the length of a local video file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Deps are the collaborators shared by all services.
type Deps struct {
	Users     repositories.UserRepository
	Videos    repositories.VideoRepository
	Comments  repositories.CommentRepository
	Tweets    repositories.TweetRepository
	Playlists repositories.PlaylistRepository
	Relations repositories.RelationRepository
	Tokens    TokenManager
	Media     media.Gateway
	// Prober is optional; without it videos are stored with zero duration.
	Prober DurationProber
	Now    func() time.Time
}

// Services groups every business service.
type Services struct {
	Identity  *Identity
	Relations *Relations
	Views     *Views
	Comments  *Comments
	Tweets    *Tweets
	Playlists *Playlists
	Videos    *Videos
}

// New wires the services over deps.
func New(deps Deps) *Services {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	views := &Views{deps: deps}
	return &Services{
		Identity:  &Identity{deps: deps},
		Relations: &Relations{deps: deps},
		Views:     views,
		Comments:  &Comments{deps: deps},
		Tweets:    &Tweets{deps: deps},
		Playlists: &Playlists{deps: deps},
		Videos:    &Videos{deps: deps},
	}
}

func (d Deps) now() time.Time {
	return d.Now().UTC()
}

// requireID rejects ids that are not well-formed, naming the resource.
func requireID(id, field, label string) error {
	if !validation.IsID(id) {
		return invalid(field, "Invalid "+label+" ID")
	}
	return nil
}

// check validates input struct tags.
func check(input any) error {
	if fe := validation.Struct(input); fe != nil {
		return invalid(fe.Field, fe.Message)
	}
	return nil
}

// requireOwner gates mutations on ownership.
func requireOwner(ownerID, actorID, what string) error {
	if ownerID != actorID {
		return forbidden("You are not allowed to modify this " + what)
	}
	return nil
}

// removeFiles deletes leftover local uploads.
func removeFiles(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn().Err(err).Str("path", p).Msg("failed to remove temporary upload")
		}
	}
}

// compensate removes assets that were uploaded for an operation that failed.
func (d Deps) compensate(ctx context.Context, assets ...media.Asset) {
	for _, a := range assets {
		if a.Key == "" {
			continue
		}
		if err := d.Media.Remove(ctx, a); err != nil {
			logging.FromContext(ctx).Error().Err(err).Str("key", a.Key).Msg("failed to remove orphaned media asset")
		}
	}
}

// discard removes an asset that a successful update has replaced.
func (d Deps) discard(ctx context.Context, url string, kind media.Kind) {
	if url == "" || d.Media == nil {
		return
	}
	if err := d.Media.Remove(ctx, media.Asset{URL: url, Kind: kind}); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("url", url).Msg("failed to remove replaced media asset")
	}
}

// upload pushes a local file through the media gateway.
func (d Deps) upload(ctx context.Context, localPath string, kind media.Kind, what string) (media.Asset, error) {
	if d.Media == nil {
		removeFiles(ctx, localPath)
		return media.Asset{}, upstream("Media storage is not configured", nil)
	}
	ctx, span := logging.StartSpan(ctx, "media.upload")
	defer span.End()

	asset, err := d.Media.Upload(ctx, localPath, kind)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("kind", string(kind)).Msg("media upload failed")
		return media.Asset{}, upstream("Failed to upload "+what, err)
	}
	return asset, nil
}
