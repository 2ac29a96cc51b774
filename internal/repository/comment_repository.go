package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

const commentColumns = "id, content_type, content_id, user_id, body, parent_id, liked_by, created_at, updated_at"

// CommentRepository provides persistence for comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// GetByID returns a comment by identifier.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := fmt.Sprintf("SELECT %s FROM comments WHERE id = $1", commentColumns)
	var comment models.Comment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Create inserts a new comment.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	comment.UpdatedAt = now
	if comment.LikedBy == nil {
		comment.LikedBy = pq.StringArray{}
	}
	const query = `INSERT INTO comments (id, content_type, content_id, user_id, body, parent_id, liked_by, created_at, updated_at)
VALUES (:id, :content_type, :content_id, :user_id, :body, :parent_id, :liked_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// DeleteTree removes a comment and all direct replies in a single statement,
// so a partial failure cannot orphan replies. Returns rows deleted.
func (r *CommentRepository) DeleteTree(ctx context.Context, id string) (int64, error) {
	const query = `DELETE FROM comments WHERE id = $1 OR parent_id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete comment tree: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ToggleLike flips the caller's membership in the comment's liked_by set in
// one atomic statement and returns the resulting set.
func (r *CommentRepository) ToggleLike(ctx context.Context, id, userID string) ([]string, error) {
	const query = `UPDATE comments SET
	liked_by = CASE WHEN $2 = ANY(liked_by) THEN array_remove(liked_by, $2) ELSE array_append(liked_by, $2) END,
	updated_at = $3
WHERE id = $1
RETURNING liked_by`
	var likedBy pq.StringArray
	if err := r.db.QueryRowxContext(ctx, query, id, userID, time.Now().UTC()).Scan(&likedBy); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("toggle comment like: %w", err)
	}
	return []string(likedBy), nil
}

// List returns comments for a content item with a total count. TopLevel
// restricts to comments without a parent.
func (r *CommentRepository) List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, int, error) {
	baseQuery := `FROM comments WHERE content_type = $1 AND content_id = $2`
	args := []interface{}{filter.ContentType, filter.ContentID}

	if filter.ParentID != nil {
		baseQuery += fmt.Sprintf(" AND parent_id = $%d", len(args)+1)
		args = append(args, *filter.ParentID)
	} else if filter.TopLevel {
		baseQuery += " AND parent_id IS NULL"
	}

	page := normalizePage(filter.PageParams, map[string]bool{"created_at": true, "updated_at": true})

	listQuery := fmt.Sprintf("SELECT %s %s %s", commentColumns, baseQuery, pageClause(page))
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}
	return comments, total, nil
}
