package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

// EngagementRepository persists likes and video view records. Uniqueness of
// both is delegated to the database: unique indexes on
// (content_type, content_id, user_id) and (video_id, user_id).
type EngagementRepository struct {
	db *sqlx.DB
}

// NewEngagementRepository creates the repository.
func NewEngagementRepository(db *sqlx.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// FindLike returns the like row for (content, user), or sql.ErrNoRows.
func (r *EngagementRepository) FindLike(ctx context.Context, contentType models.ContentType, contentID, userID string) (*models.Like, error) {
	const query = `SELECT id, content_type, content_id, user_id, created_at FROM likes
WHERE content_type = $1 AND content_id = $2 AND user_id = $3 LIMIT 1`
	var like models.Like
	if err := r.db.GetContext(ctx, &like, query, contentType, contentID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find like: %w", err)
	}
	return &like, nil
}

// CreateLike inserts a like row. A racing duplicate surfaces as a unique
// violation which callers translate to a conflict.
func (r *EngagementRepository) CreateLike(ctx context.Context, like *models.Like) error {
	if like.ID == "" {
		like.ID = uuid.NewString()
	}
	if like.CreatedAt.IsZero() {
		like.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO likes (id, content_type, content_id, user_id, created_at)
VALUES (:id, :content_type, :content_id, :user_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, like); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create like: %w", err)
	}
	return nil
}

// DeleteLike removes the like row for (content, user) and reports whether a
// row was actually deleted.
func (r *EngagementRepository) DeleteLike(ctx context.Context, contentType models.ContentType, contentID, userID string) (bool, error) {
	const query = `DELETE FROM likes WHERE content_type = $1 AND content_id = $2 AND user_id = $3`
	res, err := r.db.ExecContext(ctx, query, contentType, contentID, userID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CountLikes returns the number of like rows for a content item.
func (r *EngagementRepository) CountLikes(ctx context.Context, contentType models.ContentType, contentID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM likes WHERE content_type = $1 AND content_id = $2`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, contentType, contentID); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return total, nil
}

// UpsertView records or refreshes a view row in one statement and bumps the
// video view counter only when the row is new. Zero-valued inputs never
// overwrite a previously recorded positive metric, and the counter moves via
// an atomic increment, so the operation stays correct under concurrent
// requests from the same principal.
func (r *EngagementRepository) UpsertView(ctx context.Context, view *models.VideoView) (created bool, err error) {
	if view.ID == "" {
		view.ID = uuid.NewString()
	}
	if view.WatchedAt.IsZero() {
		view.WatchedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin view upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// xmax = 0 only holds for freshly inserted rows.
	const query = `INSERT INTO video_views (id, video_id, user_id, watch_time, completion_pct, last_position, watched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (video_id, user_id) DO UPDATE SET
	watch_time = CASE WHEN EXCLUDED.watch_time > 0 THEN EXCLUDED.watch_time ELSE video_views.watch_time END,
	completion_pct = CASE WHEN EXCLUDED.completion_pct > 0 THEN EXCLUDED.completion_pct ELSE video_views.completion_pct END,
	last_position = CASE WHEN EXCLUDED.last_position > 0 THEN EXCLUDED.last_position ELSE video_views.last_position END,
	watched_at = EXCLUDED.watched_at
RETURNING id, watch_time, completion_pct, last_position, (xmax = 0) AS inserted`

	row := tx.QueryRowxContext(ctx, query,
		view.ID, view.VideoID, view.UserID, view.WatchTime, view.CompletionPct, view.LastPosition, view.WatchedAt)
	var inserted bool
	if err := row.Scan(&view.ID, &view.WatchTime, &view.CompletionPct, &view.LastPosition, &inserted); err != nil {
		return false, fmt.Errorf("upsert view: %w", err)
	}

	if inserted {
		if _, err := tx.ExecContext(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, view.VideoID); err != nil {
			return false, fmt.Errorf("increment video views: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit view upsert: %w", err)
	}
	return inserted, nil
}

// FindView returns the view row for (video, user), or sql.ErrNoRows.
func (r *EngagementRepository) FindView(ctx context.Context, videoID, userID string) (*models.VideoView, error) {
	const query = `SELECT id, video_id, user_id, watch_time, completion_pct, last_position, watched_at FROM video_views
WHERE video_id = $1 AND user_id = $2 LIMIT 1`
	var view models.VideoView
	if err := r.db.GetContext(ctx, &view, query, videoID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find view: %w", err)
	}
	return &view, nil
}

// ListViewsForVideo returns the per-user view rows of a video with a total,
// for the owner's engagement breakdown.
func (r *EngagementRepository) ListViewsForVideo(ctx context.Context, videoID string, params models.PageParams) ([]models.VideoView, int, error) {
	page := normalizePage(params, map[string]bool{"watched_at": true, "watch_time": true})
	if page.SortBy == "created_at" {
		page.SortBy = "watched_at"
	}

	listQuery := fmt.Sprintf(`SELECT id, video_id, user_id, watch_time, completion_pct, last_position, watched_at
FROM video_views WHERE video_id = $1 %s`, pageClause(page))
	var views []models.VideoView
	if err := r.db.SelectContext(ctx, &views, listQuery, videoID); err != nil {
		return nil, 0, fmt.Errorf("list views: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM video_views WHERE video_id = $1`, videoID); err != nil {
		return nil, 0, fmt.Errorf("count views: %w", err)
	}
	return views, total, nil
}
