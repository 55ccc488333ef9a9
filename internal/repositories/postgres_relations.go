package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// relationTable describes where a relation kind lives. Likes share one table
// discriminated by target_kind; subscriptions have their own.
type relationTable struct {
	table     string
	actorCol  string
	targetCol string
	// kind is the target_kind discriminator, empty for subscriptions.
	kind string
}

func tableFor(kind models.RelationKind) (relationTable, error) {
	switch kind {
	case models.RelationVideoLike:
		return relationTable{table: "likes", actorCol: "user_id", targetCol: "target_id", kind: "video"}, nil
	case models.RelationCommentLike:
		return relationTable{table: "likes", actorCol: "user_id", targetCol: "target_id", kind: "comment"}, nil
	case models.RelationTweetLike:
		return relationTable{table: "likes", actorCol: "user_id", targetCol: "target_id", kind: "tweet"}, nil
	case models.RelationSubscription:
		return relationTable{table: "subscriptions", actorCol: "subscriber_id", targetCol: "channel_id"}, nil
	}
	return relationTable{}, fmt.Errorf("unknown relation kind %q", kind)
}

// kindFilter returns an extra predicate and its argument when the table is
// shared between kinds. placeholder is the positional index to use.
func (t relationTable) kindFilter(placeholder int) (string, []any) {
	if t.kind == "" {
		return "", nil
	}
	return fmt.Sprintf(" AND target_kind = $%d", placeholder), []any{t.kind}
}

// PostgresRelationRepository provides PostgreSQL-backed likes and subscriptions.
type PostgresRelationRepository struct {
	pool db.Pool
}

// NewPostgresRelationRepository constructs a relation repository backed by PostgreSQL.
func NewPostgresRelationRepository(pool db.Pool) *PostgresRelationRepository {
	return &PostgresRelationRepository{pool: pool}
}

// Toggle deletes the relation if it exists and inserts it otherwise, in one
// statement. The primary key on (actor, [kind,] target) makes a concurrent
// insert resolve through ON CONFLICT, so the caller that loses the race
// observes the relation as active instead of creating a duplicate.
func (r *PostgresRelationRepository) Toggle(ctx context.Context, rel models.Relation) (bool, error) {
	t, err := tableFor(rel.Kind)
	if err != nil {
		return false, err
	}

	var stmt string
	var args []any
	if t.kind != "" {
		stmt = `
        WITH deleted AS (
            DELETE FROM likes
            WHERE user_id = $1 AND target_kind = $2 AND target_id = $3
            RETURNING 1
        )
        INSERT INTO likes (user_id, target_kind, target_id, created_at)
        SELECT $1, $2, $3, $4
        WHERE NOT EXISTS (SELECT 1 FROM deleted)
        ON CONFLICT (user_id, target_kind, target_id) DO UPDATE SET created_at = likes.created_at
        RETURNING 1`
		args = []any{rel.ActorID, t.kind, rel.TargetID, rel.CreatedAt}
	} else {
		stmt = `
        WITH deleted AS (
            DELETE FROM subscriptions
            WHERE subscriber_id = $1 AND channel_id = $2
            RETURNING 1
        )
        INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
        SELECT $1, $2, $3
        WHERE NOT EXISTS (SELECT 1 FROM deleted)
        ON CONFLICT (subscriber_id, channel_id) DO UPDATE SET created_at = subscriptions.created_at
        RETURNING 1`
		args = []any{rel.ActorID, rel.TargetID, rel.CreatedAt}
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var one int
	err = conn.QueryRow(ctx, stmt, args...).Scan(&one)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, mapPgError(err, "toggle "+t.table)
	}
	return true, nil
}

// Exists reports whether the relation is present.
func (r *PostgresRelationRepository) Exists(ctx context.Context, actorID string, kind models.RelationKind, targetID string) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	filter, extra := t.kindFilter(3)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s = $2%s)`, t.table, t.actorCol, t.targetCol, filter)
	if err := conn.QueryRow(ctx, query, append([]any{actorID, targetID}, extra...)...).Scan(&exists); err != nil {
		return false, mapPgError(err, "relation exists")
	}
	return exists, nil
}

// CountByTargets counts relations grouped by target.
func (r *PostgresRelationRepository) CountByTargets(ctx context.Context, kind models.RelationKind, targetIDs []string) (map[string]int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	return r.countGrouped(ctx, t, t.targetCol, targetIDs)
}

// CountByActors counts relations grouped by actor.
func (r *PostgresRelationRepository) CountByActors(ctx context.Context, kind models.RelationKind, actorIDs []string) (map[string]int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	return r.countGrouped(ctx, t, t.actorCol, actorIDs)
}

func (r *PostgresRelationRepository) countGrouped(ctx context.Context, t relationTable, col string, ids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	filter, extra := t.kindFilter(2)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	query := fmt.Sprintf(`SELECT %[2]s::TEXT, COUNT(*) FROM %[1]s WHERE %[2]s = ANY($1::UUID[])%[3]s GROUP BY %[2]s`, t.table, col, filter)
	rows, err := conn.Query(ctx, query, append([]any{ids}, extra...)...)
	if err != nil {
		return nil, mapPgError(err, "count "+t.table)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", t.table, err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s counts: %w", t.table, err)
	}
	return counts, nil
}

// ActiveTargets reports which targets the actor is related to.
func (r *PostgresRelationRepository) ActiveTargets(ctx context.Context, actorID string, kind models.RelationKind, targetIDs []string) (map[string]bool, error) {
	active := make(map[string]bool, len(targetIDs))
	if len(targetIDs) == 0 || actorID == "" {
		return active, nil
	}
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	filter, extra := t.kindFilter(3)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	query := fmt.Sprintf(`SELECT %s::TEXT FROM %s WHERE %s = $1 AND %s = ANY($2::UUID[])%s`, t.targetCol, t.table, t.actorCol, t.targetCol, filter)
	rows, err := conn.Query(ctx, query, append([]any{actorID, targetIDs}, extra...)...)
	if err != nil {
		return nil, mapPgError(err, "query active "+t.table)
	}
	ids, err := collectIDs(rows, t.table)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		active[id] = true
	}
	return active, nil
}

// ListTargets lists what the actor relates to, newest first.
func (r *PostgresRelationRepository) ListTargets(ctx context.Context, actorID string, kind models.RelationKind) ([]string, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	return r.listColumn(ctx, t, t.targetCol, t.actorCol, actorID)
}

// ListActors lists who relates to the target, newest first.
func (r *PostgresRelationRepository) ListActors(ctx context.Context, kind models.RelationKind, targetID string) ([]string, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	return r.listColumn(ctx, t, t.actorCol, t.targetCol, targetID)
}

func (r *PostgresRelationRepository) listColumn(ctx context.Context, t relationTable, selectCol, whereCol, id string) ([]string, error) {
	filter, extra := t.kindFilter(2)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	query := fmt.Sprintf(`SELECT %s::TEXT FROM %s WHERE %s = $1%s ORDER BY created_at DESC, %s DESC`, selectCol, t.table, whereCol, filter, selectCol)
	rows, err := conn.Query(ctx, query, append([]any{id}, extra...)...)
	if err != nil {
		return nil, mapPgError(err, "list "+t.table)
	}
	return collectIDs(rows, t.table)
}

var _ RelationRepository = (*PostgresRelationRepository)(nil)
