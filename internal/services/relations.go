package services

import (
	"context"
	"fmt"

	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
)

// Relations toggles likes and subscriptions.
type Relations struct {
	deps Deps
}

type relationTarget struct {
	field string
	label string
	// resource names the target in NotFound messages.
	resource string
}

var relationTargets = map[models.RelationKind]relationTarget{
	models.RelationVideoLike:    {field: "videoId", label: "video", resource: "Video"},
	models.RelationCommentLike:  {field: "commentId", label: "comment", resource: "Comment"},
	models.RelationTweetLike:    {field: "tweetId", label: "tweet", resource: "Tweet"},
	models.RelationSubscription: {field: "channelId", label: "channel", resource: "Channel"},
}

// Toggle flips the relation between actor and target and reports whether it
// is now active. Concurrent toggles are serialised by the repository.
func (s *Relations) Toggle(ctx context.Context, actorID string, kind models.RelationKind, targetID string) (bool, error) {
	target, ok := relationTargets[kind]
	if !ok {
		return false, fmt.Errorf("unknown relation kind %q", kind)
	}
	if err := requireID(targetID, target.field, target.label); err != nil {
		return false, err
	}
	if kind == models.RelationSubscription && actorID == targetID {
		return false, invalid(target.field, "You cannot subscribe to yourself")
	}
	if err := s.targetExists(ctx, kind, targetID); err != nil {
		return false, lookup(err, target.resource, "load "+target.label)
	}

	active, err := s.deps.Relations.Toggle(ctx, models.Relation{
		ActorID:   actorID,
		Kind:      kind,
		TargetID:  targetID,
		CreatedAt: s.deps.now(),
	})
	metrics.RecordToggle(string(kind), active, err)
	if err != nil {
		return false, lookup(err, target.resource, "toggle "+string(kind))
	}
	return active, nil
}

// IsActive reports whether the relation exists without changing it.
func (s *Relations) IsActive(ctx context.Context, actorID string, kind models.RelationKind, targetID string) (bool, error) {
	target, ok := relationTargets[kind]
	if !ok {
		return false, fmt.Errorf("unknown relation kind %q", kind)
	}
	if err := requireID(targetID, target.field, target.label); err != nil {
		return false, err
	}
	return s.deps.Relations.Exists(ctx, actorID, kind, targetID)
}

func (s *Relations) targetExists(ctx context.Context, kind models.RelationKind, id string) error {
	var err error
	switch kind {
	case models.RelationVideoLike:
		_, err = s.deps.Videos.FindByID(ctx, id)
	case models.RelationCommentLike:
		_, err = s.deps.Comments.FindByID(ctx, id)
	case models.RelationTweetLike:
		_, err = s.deps.Tweets.FindByID(ctx, id)
	case models.RelationSubscription:
		_, err = s.deps.Users.FindByID(ctx, id)
	}
	return err
}
