package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const videoColumns = `id, owner_id, title, description, video_file, thumbnail, duration, views, is_published, created_at, updated_at`

var videoSortColumns = map[string]string{
	models.SortCreatedAt: "created_at",
	models.SortUpdatedAt: "updated_at",
	models.SortViews:     "views",
	models.SortTitle:     "title",
	models.SortDuration:  "duration",
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail,
		&v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, v models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_file, thumbnail, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, v.ID, v.OwnerID, v.Title, v.Description, v.VideoFile, v.Thumbnail, v.Duration, v.Views, v.IsPublished, v.CreatedAt, v.UpdatedAt)
	return mapPgError(err, "insert video")
}

// FindByID fetches a single video.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	v, err := scanVideo(conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err != nil {
		return models.Video{}, mapPgError(err, "select video")
	}
	return v, nil
}

// FindByIDs loads every existing video among ids.
func (r *PostgresVideoRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error) {
	videos := make(map[string]models.Video, len(ids))
	if len(ids) == 0 {
		return videos, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ANY($1::UUID[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

// List returns a filtered, sorted page of videos and the total match count.
func (r *PostgresVideoRepository) List(ctx context.Context, filter models.VideoFilter, opts models.ListOptions) ([]models.Video, int64, error) {
	opts = opts.Normalize()

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		conds = append(conds, "title ILIKE '%' || "+arg(escapeLike(q))+" || '%'")
	}
	if filter.OwnerID != "" {
		conds = append(conds, "owner_id = "+arg(filter.OwnerID))
	}
	if filter.ViewerID != "" {
		conds = append(conds, "(is_published OR owner_id = "+arg(filter.ViewerID)+")")
	} else {
		conds = append(conds, "is_published")
	}
	where := "WHERE " + strings.Join(conds, " AND ")

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	orderBy := fmt.Sprintf("ORDER BY %s %s, id %s", videoSortColumns[opts.SortBy], direction, direction)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapPgError(err, "count videos")
	}

	pageArgs := append(append([]any{}, args...), opts.Limit, opts.Offset())
	query := fmt.Sprintf(`SELECT %s FROM videos %s %s LIMIT $%d OFFSET $%d`,
		videoColumns, where, orderBy, len(args)+1, len(args)+2)

	rows, err := conn.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, mapPgError(err, "query videos")
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, total, nil
}

// Update persists the editable fields of a video.
func (r *PostgresVideoRepository) Update(ctx context.Context, v models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos SET title = $2, description = $3, thumbnail = $4, updated_at = $5
        WHERE id = $1
    `, v.ID, v.Title, v.Description, v.Thumbnail, v.UpdatedAt)
	if err != nil {
		return mapPgError(err, "update video")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes a video. Comments, likes and playlist entries that
// reference it are left in place.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.pool, "videos", id)
}

// IncrementViews adds one view in a single UPDATE.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var views int64
	if err := conn.QueryRow(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1 RETURNING views`, id).Scan(&views); err != nil {
		return 0, mapPgError(err, "increment views")
	}
	return views, nil
}

// TogglePublish flips is_published in a single UPDATE.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string, at time.Time) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var published bool
	if err := conn.QueryRow(ctx, `
        UPDATE videos SET is_published = NOT is_published, updated_at = $2
        WHERE id = $1
        RETURNING is_published
    `, id, at).Scan(&published); err != nil {
		return false, mapPgError(err, "toggle publish")
	}
	return published, nil
}

// ChannelTotals aggregates video, view and like totals for a channel.
func (r *PostgresVideoRepository) ChannelTotals(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var stats models.ChannelStats
	err = conn.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM videos WHERE owner_id = $1),
            (SELECT COALESCE(SUM(views), 0)::INT8 FROM videos WHERE owner_id = $1),
            (SELECT COUNT(*) FROM likes l
                JOIN videos v ON v.id = l.target_id
                WHERE l.target_kind = 'video' AND v.owner_id = $1)
    `, ownerID).Scan(&stats.TotalVideos, &stats.TotalViews, &stats.TotalLikes)
	if err != nil {
		return models.ChannelStats{}, mapPgError(err, "channel totals")
	}
	return stats, nil
}

func deleteByID(ctx context.Context, pool db.Pool, table, id string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err, "delete from "+table)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
