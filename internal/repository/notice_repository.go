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

const noticeColumns = "id, owner_id, title, body, branch, year, allowed_user_ids, published, attachment_url, attachment_key, created_at, updated_at"

// NoticeRepository provides persistence for cohort notices.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository creates the repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// GetByID returns a notice by identifier.
func (r *NoticeRepository) GetByID(ctx context.Context, id string) (*models.Notice, error) {
	query := fmt.Sprintf("SELECT %s FROM notices WHERE id = $1", noticeColumns)
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		return nil, err
	}
	return &notice, nil
}

// Create inserts a new notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = now
	}
	notice.UpdatedAt = now
	const query = `INSERT INTO notices (id, owner_id, title, body, branch, year, allowed_user_ids, published, attachment_url, attachment_key, created_at, updated_at)
VALUES (:id, :owner_id, :title, :body, :branch, :year, :allowed_user_ids, :published, :attachment_url, :attachment_key, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// Update modifies an existing notice.
func (r *NoticeRepository) Update(ctx context.Context, notice *models.Notice) error {
	notice.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notices SET title = :title, body = :body, branch = :branch, year = :year,
published = :published, attachment_url = :attachment_url, attachment_key = :attachment_key, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	return nil
}

// Delete removes a notice.
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}

// GrantAccess appends a user id to the allow-list if not already present.
func (r *NoticeRepository) GrantAccess(ctx context.Context, id, userID string) error {
	const query = `UPDATE notices SET allowed_user_ids = array_append(allowed_user_ids, $2), updated_at = $3
WHERE id = $1 AND NOT ($2 = ANY(allowed_user_ids))`
	if _, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("grant notice access: %w", err)
	}
	return nil
}

// RevokeAccess removes a user id from the allow-list.
func (r *NoticeRepository) RevokeAccess(ctx context.Context, id, userID string) error {
	const query = `UPDATE notices SET allowed_user_ids = array_remove(allowed_user_ids, $2), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke notice access: %w", err)
	}
	return nil
}

// List returns notices matching the filter with a total count.
func (r *NoticeRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.Notice, int, error) {
	baseQuery := `FROM notices WHERE 1=1`
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
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(body) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := normalizePage(filter.PageParams, map[string]bool{
		"title":      true,
		"created_at": true,
		"updated_at": true,
	})

	listQuery := fmt.Sprintf("SELECT %s %s %s", noticeColumns, baseQuery, pageClause(page))
	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list notices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notices: %w", err)
	}
	return notices, total, nil
}
