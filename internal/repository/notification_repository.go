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

const notificationColumns = `id, user_id, type, title, message, payload, read, created_at`

// NotificationRepository provides persistence for per-recipient
// notifications. Rows are only ever created by the fan-out worker.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a single notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, type, title, message, payload, read, created_at)
VALUES (:id, :user_id, :type, :title, :message, :payload, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// CreateMany inserts one row per recipient in a single batched statement.
func (r *NotificationRepository) CreateMany(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range ns {
		if ns[i].ID == "" {
			ns[i].ID = uuid.NewString()
		}
		if ns[i].CreatedAt.IsZero() {
			ns[i].CreatedAt = now
		}
	}
	const query = `INSERT INTO notifications (id, user_id, type, title, message, payload, read, created_at)
VALUES (:id, :user_id, :type, :title, :message, :payload, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ns); err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	return nil
}

// List returns a recipient's notifications with a total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	baseQuery := `FROM notifications WHERE user_id = $1`
	args := []interface{}{filter.UserID}
	var conditions []string

	if filter.UnreadOnly {
		conditions = append(conditions, "read = FALSE")
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := normalizePage(filter.PageParams, map[string]bool{"created_at": true})

	listQuery := fmt.Sprintf("SELECT %s %s %s", notificationColumns, baseQuery, pageClause(page))
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// CountUnread returns the number of unread notifications for a recipient.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}

// MarkRead flags a single notification as read, scoped to the recipient.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkAllRead flags every unread notification of a recipient as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Delete removes a single notification, scoped to the recipient.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteAll removes every notification of a recipient.
func (r *NotificationRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
