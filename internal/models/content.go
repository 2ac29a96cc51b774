package models

import (
	"time"

	"github.com/lib/pq"
)

// ContentType identifies the content variant an engagement row refers to.
type ContentType string

const (
	ContentVideo    ContentType = "video"
	ContentNotice   ContentType = "notice"
	ContentPlaylist ContentType = "playlist"
)

// Valid reports whether the content type is one of the known variants.
func (t ContentType) Valid() bool {
	switch t {
	case ContentVideo, ContentNotice, ContentPlaylist:
		return true
	}
	return false
}

// ContentMeta is the access-relevant snapshot of a content item. The access
// resolver operates on this snapshot only, never on live storage state.
type ContentMeta struct {
	OwnerID        string
	Branch         string
	Year           string
	AllowedUserIDs []string
	Published      bool
}

// Video is a lecture video uploaded by a teacher.
type Video struct {
	ID              string         `db:"id" json:"id"`
	OwnerID         string         `db:"owner_id" json:"owner_id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description,omitempty"`
	Branch          string         `db:"branch" json:"branch"`
	Year            string         `db:"year" json:"year"`
	AllowedUserIDs  pq.StringArray `db:"allowed_user_ids" json:"allowed_user_ids,omitempty"`
	Published       bool           `db:"published" json:"published"`
	ObjectKey       string         `db:"object_key" json:"-"`
	URL             string         `db:"url" json:"url"`
	ThumbnailURL    string         `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	DurationSeconds int            `db:"duration_seconds" json:"duration_seconds"`
	Views           int64          `db:"views" json:"views"`
	LikesCount      int64          `db:"likes_count" json:"likes_count"`
	PlaylistID      *string        `db:"playlist_id" json:"playlist_id,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// AccessMeta returns the access snapshot for the video.
func (v *Video) AccessMeta() ContentMeta {
	return ContentMeta{
		OwnerID:        v.OwnerID,
		Branch:         v.Branch,
		Year:           v.Year,
		AllowedUserIDs: v.AllowedUserIDs,
		Published:      v.Published,
	}
}

// Notice is an announcement posted by a teacher to a cohort.
type Notice struct {
	ID             string         `db:"id" json:"id"`
	OwnerID        string         `db:"owner_id" json:"owner_id"`
	Title          string         `db:"title" json:"title"`
	Body           string         `db:"body" json:"body"`
	Branch         string         `db:"branch" json:"branch"`
	Year           string         `db:"year" json:"year"`
	AllowedUserIDs pq.StringArray `db:"allowed_user_ids" json:"allowed_user_ids,omitempty"`
	Published      bool           `db:"published" json:"published"`
	AttachmentURL  string         `db:"attachment_url" json:"attachment_url,omitempty"`
	AttachmentKey  string         `db:"attachment_key" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// AccessMeta returns the access snapshot for the notice.
func (n *Notice) AccessMeta() ContentMeta {
	return ContentMeta{
		OwnerID:        n.OwnerID,
		Branch:         n.Branch,
		Year:           n.Year,
		AllowedUserIDs: n.AllowedUserIDs,
		Published:      n.Published,
	}
}

// Playlist groups videos owned by the same teacher.
type Playlist struct {
	ID             string         `db:"id" json:"id"`
	OwnerID        string         `db:"owner_id" json:"owner_id"`
	Title          string         `db:"title" json:"title"`
	Description    string         `db:"description" json:"description,omitempty"`
	Branch         string         `db:"branch" json:"branch"`
	Year           string         `db:"year" json:"year"`
	AllowedUserIDs pq.StringArray `db:"allowed_user_ids" json:"allowed_user_ids,omitempty"`
	Published      bool           `db:"published" json:"published"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// AccessMeta returns the access snapshot for the playlist.
func (p *Playlist) AccessMeta() ContentMeta {
	return ContentMeta{
		OwnerID:        p.OwnerID,
		Branch:         p.Branch,
		Year:           p.Year,
		AllowedUserIDs: p.AllowedUserIDs,
		Published:      p.Published,
	}
}

// ContentFilter captures listing criteria shared by the content variants.
// Viewer fields are set for student listings so the repository can apply the
// same visibility predicate the access resolver uses.
type ContentFilter struct {
	OwnerID       string
	ViewerID      string
	ViewerBranch  string
	ViewerYear    string
	PublishedOnly bool
	PlaylistID    string
	Search        string
	PageParams
}
