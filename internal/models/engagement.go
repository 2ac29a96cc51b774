package models

import (
	"time"

	"github.com/lib/pq"
)

// Like links a principal to a content item. At most one row may exist per
// (content_type, content_id, user_id); the database enforces this.
type Like struct {
	ID          string      `db:"id" json:"id"`
	ContentType ContentType `db:"content_type" json:"content_type"`
	ContentID   string      `db:"content_id" json:"content_id"`
	UserID      string      `db:"user_id" json:"user_id"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// VideoView records per-user watch progress for a video. One row per
// (video_id, user_id); repeat views update the metrics in place.
type VideoView struct {
	ID            string    `db:"id" json:"id"`
	VideoID       string    `db:"video_id" json:"video_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	WatchTime     int       `db:"watch_time" json:"watch_time"`
	CompletionPct float64   `db:"completion_pct" json:"completion_pct"`
	LastPosition  int       `db:"last_position" json:"last_position"`
	WatchedAt     time.Time `db:"watched_at" json:"watched_at"`
}

// Comment is attached to a content item. ParentID is nil for top-level
// comments; replies reference their top-level ancestor directly (flat reply
// model, no nested chains). LikedBy is the set of principal ids that liked
// the comment.
type Comment struct {
	ID          string         `db:"id" json:"id"`
	ContentType ContentType    `db:"content_type" json:"content_type"`
	ContentID   string         `db:"content_id" json:"content_id"`
	UserID      string         `db:"user_id" json:"user_id"`
	Body        string         `db:"body" json:"body"`
	ParentID    *string        `db:"parent_id" json:"parent_id,omitempty"`
	LikedBy     pq.StringArray `db:"liked_by" json:"liked_by"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ReportStatus is the review state of a comment report.
type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportReviewed ReportStatus = "REVIEWED"
	ReportIgnored  ReportStatus = "IGNORED"
)

// ReportReason values accepted for comment reports.
const (
	ReportReasonSpam       = "spam"
	ReportReasonHarassment = "harassment"
	ReportReasonOffTopic   = "off_topic"
	ReportReasonOther      = "other"
)

// Report flags a comment for admin review. One report per
// (comment_id, reporter_id).
type Report struct {
	ID         string       `db:"id" json:"id"`
	CommentID  string       `db:"comment_id" json:"comment_id"`
	ReporterID string       `db:"reporter_id" json:"reporter_id"`
	Reason     string       `db:"reason" json:"reason"`
	Details    string       `db:"details" json:"details,omitempty"`
	Status     ReportStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// CommentFilter captures listing criteria for comments.
type CommentFilter struct {
	ContentType ContentType
	ContentID   string
	ParentID    *string
	TopLevel    bool
	PageParams
}

// ReportFilter captures listing criteria for comment reports.
type ReportFilter struct {
	Status     *ReportStatus
	ReporterID string
	PageParams
}
