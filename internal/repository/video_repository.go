package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

const videoColumns = "id, owner_id, title, description, branch, year, allowed_user_ids, published, object_key, url, thumbnail_url, duration_seconds, views, likes_count, playlist_id, created_at, updated_at"

// visibilityPredicate is the student visibility rule expressed in SQL. The
// placeholders are (branch, year, viewer id) appended in that order. It must
// stay in lockstep with service.CanView.
const visibilityPredicate = `(published = TRUE AND (((branch = $%d OR branch = 'All') AND (year = $%d OR year = 'All')) OR $%d = ANY(allowed_user_ids)))`

// VideoRepository provides persistence for lecture videos.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository creates the repository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// GetByID returns a video by identifier.
func (r *VideoRepository) GetByID(ctx context.Context, id string) (*models.Video, error) {
	query := fmt.Sprintf("SELECT %s FROM videos WHERE id = $1", videoColumns)
	var video models.Video
	if err := r.db.GetContext(ctx, &video, query, id); err != nil {
		return nil, err
	}
	return &video, nil
}

// Create inserts a new video.
func (r *VideoRepository) Create(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now
	const query = `INSERT INTO videos (id, owner_id, title, description, branch, year, allowed_user_ids, published, object_key, url, thumbnail_url, duration_seconds, views, likes_count, playlist_id, created_at, updated_at)
VALUES (:id, :owner_id, :title, :description, :branch, :year, :allowed_user_ids, :published, :object_key, :url, :thumbnail_url, :duration_seconds, :views, :likes_count, :playlist_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, video); err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	return nil
}

// Update modifies owner-mutable fields of a video. Counters are excluded on
// purpose; they only move through the atomic increment methods.
func (r *VideoRepository) Update(ctx context.Context, video *models.Video) error {
	video.UpdatedAt = time.Now().UTC()
	const query = `UPDATE videos SET title = :title, description = :description, branch = :branch, year = :year,
published = :published, thumbnail_url = :thumbnail_url, duration_seconds = :duration_seconds, playlist_id = :playlist_id, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, video); err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	return nil
}

// Delete removes a video.
func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

// IncrementLikes moves the denormalized like counter by delta atomically.
func (r *VideoRepository) IncrementLikes(ctx context.Context, id string, delta int) error {
	const query = `UPDATE videos SET likes_count = likes_count + $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, delta); err != nil {
		return fmt.Errorf("increment video likes: %w", err)
	}
	return nil
}

// GrantAccess appends a user id to the allow-list if not already present.
func (r *VideoRepository) GrantAccess(ctx context.Context, id, userID string) error {
	const query = `UPDATE videos SET allowed_user_ids = array_append(allowed_user_ids, $2), updated_at = $3
WHERE id = $1 AND NOT ($2 = ANY(allowed_user_ids))`
	if _, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("grant video access: %w", err)
	}
	return nil
}

// RevokeAccess removes a user id from the allow-list.
func (r *VideoRepository) RevokeAccess(ctx context.Context, id, userID string) error {
	const query = `UPDATE videos SET allowed_user_ids = array_remove(allowed_user_ids, $2), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke video access: %w", err)
	}
	return nil
}

// List returns videos matching the filter with a total count. When viewer
// fields are set the student visibility predicate is applied.
func (r *VideoRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.Video, int, error) {
	baseQuery := `FROM videos WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.ViewerID != "" {
		conditions = append(conditions, fmt.Sprintf(visibilityPredicate, len(args)+1, len(args)+2, len(args)+3))
		args = append(args, filter.ViewerBranch, filter.ViewerYear, filter.ViewerID)
	} else if filter.PublishedOnly {
		conditions = append(conditions, "published = TRUE")
	}
	if filter.PlaylistID != "" {
		conditions = append(conditions, fmt.Sprintf("playlist_id = $%d", len(args)+1))
		args = append(args, filter.PlaylistID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := normalizePage(filter.PageParams, map[string]bool{
		"title":       true,
		"views":       true,
		"likes_count": true,
		"created_at":  true,
		"updated_at":  true,
	})

	listQuery := fmt.Sprintf("SELECT %s %s %s", videoColumns, baseQuery, pageClause(page))
	var videos []models.Video
	if err := r.db.SelectContext(ctx, &videos, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list videos: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}
	return videos, total, nil
}
