package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// RelationRepository stores likes and subscriptions. Each (actor, kind,
// target) triple exists at most once; the storage layer enforces this.
type RelationRepository interface {
	// Toggle removes the relation when present and creates it otherwise, as
	// a single atomic operation. It reports whether the relation now exists.
	Toggle(ctx context.Context, relation models.Relation) (bool, error)
	Exists(ctx context.Context, actorID string, kind models.RelationKind, targetID string) (bool, error)
	// CountByTargets counts relations per target id.
	CountByTargets(ctx context.Context, kind models.RelationKind, targetIDs []string) (map[string]int64, error)
	// CountByActors counts relations per actor id.
	CountByActors(ctx context.Context, kind models.RelationKind, actorIDs []string) (map[string]int64, error)
	// ActiveTargets reports which of targetIDs the actor is related to.
	ActiveTargets(ctx context.Context, actorID string, kind models.RelationKind, targetIDs []string) (map[string]bool, error)
	// ListTargets returns target ids of an actor, newest relation first.
	ListTargets(ctx context.Context, actorID string, kind models.RelationKind) ([]string, error)
	// ListActors returns actor ids related to a target, newest relation first.
	ListActors(ctx context.Context, kind models.RelationKind, targetID string) ([]string, error)
}
