package memstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/vidtube/backend/internal/models"
)

// RelationRepository implements repositories.RelationRepository. Toggle runs
// under the store's write lock, so check and act cannot interleave.
type RelationRepository struct{ s *Store }

// Toggle flips the relation under the store lock and reports whether it is now on.
func (r *RelationRepository) Toggle(_ context.Context, rel models.Relation) (bool, error) {
	if !rel.Kind.Valid() {
		return false, fmt.Errorf("unknown relation kind %q", rel.Kind)
	}
	key := relationKey{actor: rel.ActorID, kind: rel.Kind, target: rel.TargetID}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.relations[key]; ok {
		delete(r.s.relations, key)
		r.s.relationOrder = slices.DeleteFunc(r.s.relationOrder, func(k relationKey) bool { return k == key })
		return false, nil
	}
	r.s.relations[key] = rel.CreatedAt
	r.s.relationOrder = append(r.s.relationOrder, key)
	return true, nil
}

// Exists reports whether the relation is currently on.
func (r *RelationRepository) Exists(_ context.Context, actorID string, kind models.RelationKind, targetID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.relations[relationKey{actor: actorID, kind: kind, target: targetID}]
	return ok, nil
}

// CountByTargets counts relations per target.
func (r *RelationRepository) CountByTargets(_ context.Context, kind models.RelationKind, targetIDs []string) (map[string]int64, error) {
	return r.count(kind, targetIDs, func(k relationKey) string { return k.target }), nil
}

// CountByActors counts relations per actor.
func (r *RelationRepository) CountByActors(_ context.Context, kind models.RelationKind, actorIDs []string) (map[string]int64, error) {
	return r.count(kind, actorIDs, func(k relationKey) string { return k.actor }), nil
}

func (r *RelationRepository) count(kind models.RelationKind, ids []string, side func(relationKey) string) map[string]int64 {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[string]int64, len(ids))
	for key := range r.s.relations {
		if key.kind == kind && wanted[side(key)] {
			counts[side(key)]++
		}
	}
	return counts
}

// ActiveTargets reports which of targetIDs the actor has switched on.
func (r *RelationRepository) ActiveTargets(_ context.Context, actorID string, kind models.RelationKind, targetIDs []string) (map[string]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	active := make(map[string]bool)
	for _, id := range targetIDs {
		if _, ok := r.s.relations[relationKey{actor: actorID, kind: kind, target: id}]; ok {
			active[id] = true
		}
	}
	return active, nil
}

// ListTargets returns the actor's targets, most recent first.
func (r *RelationRepository) ListTargets(_ context.Context, actorID string, kind models.RelationKind) ([]string, error) {
	return r.list(func(k relationKey) (string, bool) {
		return k.target, k.kind == kind && k.actor == actorID
	}), nil
}

// ListActors returns the actors related to targetID, most recent first.
func (r *RelationRepository) ListActors(_ context.Context, kind models.RelationKind, targetID string) ([]string, error) {
	return r.list(func(k relationKey) (string, bool) {
		return k.actor, k.kind == kind && k.target == targetID
	}), nil
}

// list walks relations from the most recently created one.
func (r *RelationRepository) list(pick func(relationKey) (string, bool)) []string {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := []string{}
	for i := len(r.s.relationOrder) - 1; i >= 0; i-- {
		if id, ok := pick(r.s.relationOrder[i]); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
