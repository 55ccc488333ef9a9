package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidtube/backend/internal/models"
)

// relationDoc is one (actor, kind, target) slot. Toggling flips Active
// rather than deleting, so every toggle is a single document write.
type relationDoc struct {
	ActorID   string    `bson:"actor_id"`
	Kind      string    `bson:"kind"`
	TargetID  string    `bson:"target_id"`
	Active    bool      `bson:"active"`
	CreatedAt time.Time `bson:"created_at"`
}

// RelationRepository stores likes and subscriptions. A unique index on
// (actor_id, kind, target_id) keeps each relation single.
type RelationRepository struct {
	coll *mongo.Collection
}

func relationKey(actorID string, kind models.RelationKind, targetID string) bson.M {
	return bson.M{"actor_id": actorID, "kind": string(kind), "target_id": targetID}
}

// toggleMaxAttempts covers the upsert race: two first-time toggles can both
// miss the document, and the loser fails on the unique index.
const toggleMaxAttempts = 3

// Toggle flips the relation in one FindOneAndUpdate upsert. created_at is
// reset only when the relation switches on.
func (r *RelationRepository) Toggle(ctx context.Context, rel models.Relation) (bool, error) {
	key := relationKey(rel.ActorID, rel.Kind, rel.TargetID)
	wasActive := bson.M{"$ifNull": bson.A{"$active", false}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"active":     bson.M{"$not": bson.A{wasActive}},
			"created_at": bson.M{"$cond": bson.A{wasActive, "$created_at", rel.CreatedAt}},
		}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var err error
	for attempt := 0; attempt < toggleMaxAttempts; attempt++ {
		var doc relationDoc
		err = r.coll.FindOneAndUpdate(ctx, key, update, opts).Decode(&doc)
		if err == nil {
			return doc.Active, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	return false, mapError(err, "toggle relation")
}

// active narrows filter to switched-on relations.
func active(filter bson.M) bson.M {
	filter["active"] = true
	return filter
}

// Exists reports whether the relation is currently on.
func (r *RelationRepository) Exists(ctx context.Context, actorID string, kind models.RelationKind, targetID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, active(relationKey(actorID, kind, targetID)), options.Count().SetLimit(1))
	if err != nil {
		return false, mapError(err, "check relation")
	}
	return n > 0, nil
}

func (r *RelationRepository) countBy(ctx context.Context, kind models.RelationKind, field string, ids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: active(bson.M{"kind": string(kind), field: bson.M{"$in": ids}})}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, mapError(err, "count relations")
	}
	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, mapError(err, "decode relation counts")
	}
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out, nil
}

// CountByTargets counts active relations per target.
func (r *RelationRepository) CountByTargets(ctx context.Context, kind models.RelationKind, targetIDs []string) (map[string]int64, error) {
	return r.countBy(ctx, kind, "target_id", targetIDs)
}

// CountByActors counts active relations per actor.
func (r *RelationRepository) CountByActors(ctx context.Context, kind models.RelationKind, actorIDs []string) (map[string]int64, error) {
	return r.countBy(ctx, kind, "actor_id", actorIDs)
}

// ActiveTargets reports which of targetIDs the actor has switched on.
func (r *RelationRepository) ActiveTargets(ctx context.Context, actorID string, kind models.RelationKind, targetIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(targetIDs))
	if actorID == "" || len(targetIDs) == 0 {
		return out, nil
	}
	filter := active(bson.M{"actor_id": actorID, "kind": string(kind), "target_id": bson.M{"$in": targetIDs}})
	docs, err := findAll[relationDoc](ctx, r.coll, filter, "active relations")
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.TargetID] = true
	}
	return out, nil
}

// ListTargets returns the actor's active targets, most recent first.
func (r *RelationRepository) ListTargets(ctx context.Context, actorID string, kind models.RelationKind) ([]string, error) {
	docs, err := findAll[relationDoc](ctx, r.coll,
		active(bson.M{"actor_id": actorID, "kind": string(kind)}), "list relation targets", options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.TargetID)
	}
	return out, nil
}

// ListActors returns the actors with an active relation to targetID, most
// recent first.
func (r *RelationRepository) ListActors(ctx context.Context, kind models.RelationKind, targetID string) ([]string, error) {
	docs, err := findAll[relationDoc](ctx, r.coll,
		active(bson.M{"kind": string(kind), "target_id": targetID}), "list relation actors", options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ActorID)
	}
	return out, nil
}
