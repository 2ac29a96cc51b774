package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType tags a notification with the event that produced it.
// Each type carries exactly one payload shape (see Payload).
type NotificationType string

const (
	NotificationVideoLiked      NotificationType = "video_liked"
	NotificationCommentAdded    NotificationType = "comment_added"
	NotificationCommentReply    NotificationType = "comment_reply"
	NotificationNoticePosted    NotificationType = "notice_posted"
	NotificationVideoPublished  NotificationType = "video_published"
	NotificationAccountApproved NotificationType = "account_approved"
	NotificationAccountRejected NotificationType = "account_rejected"
	NotificationReportReviewed  NotificationType = "report_reviewed"
)

// ContentRef points at a content item involved in an event.
type ContentRef struct {
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"`
	Title       string      `json:"title,omitempty"`
	ActorID     string      `json:"actor_id,omitempty"`
	ActorName   string      `json:"actor_name,omitempty"`
}

// CommentRef points at a comment involved in an event.
type CommentRef struct {
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"`
	CommentID   string      `json:"comment_id"`
	ActorID     string      `json:"actor_id,omitempty"`
	ActorName   string      `json:"actor_name,omitempty"`
	Excerpt     string      `json:"excerpt,omitempty"`
}

// AccountRef points at the account affected by an administrative event.
type AccountRef struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

// ReportRef points at a reviewed comment report.
type ReportRef struct {
	ReportID  string       `json:"report_id"`
	CommentID string       `json:"comment_id"`
	Status    ReportStatus `json:"status"`
}

// Payload is a closed union of the per-type notification payloads. Exactly
// one field is set, matching the notification type:
//
//	video_liked, notice_posted, video_published  -> Content
//	comment_added, comment_reply                 -> Comment
//	account_approved, account_rejected           -> Account
//	report_reviewed                              -> Report
type Payload struct {
	Content *ContentRef `json:"content,omitempty"`
	Comment *CommentRef `json:"comment,omitempty"`
	Account *AccountRef `json:"account,omitempty"`
	Report  *ReportRef  `json:"report,omitempty"`
}

// Value marshals the payload for a jsonb column.
func (p Payload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan unmarshals a jsonb column into the payload.
func (p *Payload) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = Payload{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported payload source %T", src)
	}
}

// Notification is a per-recipient message created by the fan-out worker.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Payload   Payload          `db:"payload" json:"payload"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter captures listing criteria for a recipient's inbox.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Type       *NotificationType
	PageParams
}
