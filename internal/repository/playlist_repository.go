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

const playlistColumns = "id, owner_id, title, description, branch, year, allowed_user_ids, published, created_at, updated_at"

// PlaylistRepository provides persistence for playlists.
type PlaylistRepository struct {
	db *sqlx.DB
}

// NewPlaylistRepository creates the repository.
func NewPlaylistRepository(db *sqlx.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// GetByID returns a playlist by identifier.
func (r *PlaylistRepository) GetByID(ctx context.Context, id string) (*models.Playlist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlists WHERE id = $1", playlistColumns)
	var playlist models.Playlist
	if err := r.db.GetContext(ctx, &playlist, query, id); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// Create inserts a new playlist.
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	if playlist.ID == "" {
		playlist.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = now
	}
	playlist.UpdatedAt = now
	const query = `INSERT INTO playlists (id, owner_id, title, description, branch, year, allowed_user_ids, published, created_at, updated_at)
VALUES (:id, :owner_id, :title, :description, :branch, :year, :allowed_user_ids, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, playlist); err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}
	return nil
}

// Update modifies an existing playlist.
func (r *PlaylistRepository) Update(ctx context.Context, playlist *models.Playlist) error {
	playlist.UpdatedAt = time.Now().UTC()
	const query = `UPDATE playlists SET title = :title, description = :description, branch = :branch, year = :year,
published = :published, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, playlist); err != nil {
		return fmt.Errorf("update playlist: %w", err)
	}
	return nil
}

// Delete removes a playlist and detaches its videos in one transaction so a
// partial failure cannot leave videos pointing at a missing playlist.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin playlist delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE videos SET playlist_id = NULL WHERE playlist_id = $1`, id); err != nil {
		return fmt.Errorf("detach playlist videos: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return tx.Commit()
}

// GrantAccess appends a user id to the allow-list if not already present.
func (r *PlaylistRepository) GrantAccess(ctx context.Context, id, userID string) error {
	const query = `UPDATE playlists SET allowed_user_ids = array_append(allowed_user_ids, $2), updated_at = $3
WHERE id = $1 AND NOT ($2 = ANY(allowed_user_ids))`
	if _, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("grant playlist access: %w", err)
	}
	return nil
}

// RevokeAccess removes a user id from the allow-list.
func (r *PlaylistRepository) RevokeAccess(ctx context.Context, id, userID string) error {
	const query = `UPDATE playlists SET allowed_user_ids = array_remove(allowed_user_ids, $2), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke playlist access: %w", err)
	}
	return nil
}

// List returns playlists matching the filter with a total count.
func (r *PlaylistRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.Playlist, int, error) {
	baseQuery := `FROM playlists WHERE 1=1`
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
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args)+1, len(args)+1))
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

	listQuery := fmt.Sprintf("SELECT %s %s %s", playlistColumns, baseQuery, pageClause(page))
	var playlists []models.Playlist
	if err := r.db.SelectContext(ctx, &playlists, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list playlists: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count playlists: %w", err)
	}
	return playlists, total, nil
}
