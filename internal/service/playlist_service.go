package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type playlistRepository interface {
	GetByID(ctx context.Context, id string) (*models.Playlist, error)
	Create(ctx context.Context, playlist *models.Playlist) error
	Update(ctx context.Context, playlist *models.Playlist) error
	Delete(ctx context.Context, id string) error
	GrantAccess(ctx context.Context, id, userID string) error
	RevokeAccess(ctx context.Context, id, userID string) error
	List(ctx context.Context, filter models.ContentFilter) ([]models.Playlist, int, error)
}

// CreatePlaylistRequest carries the payload for creating a playlist.
type CreatePlaylistRequest struct {
	Title       string `validate:"required"`
	Description string
	Branch      string `validate:"required"`
	Year        string `validate:"required"`
	Published   bool
}

// UpdatePlaylistRequest carries owner-mutable playlist fields.
type UpdatePlaylistRequest struct {
	Title       *string
	Description *string
	Branch      *string
	Year        *string
	Published   *bool
}

// PlaylistService owns playlist CRUD. Videos attach to playlists through the
// video service; deleting a playlist detaches them rather than deleting them.
type PlaylistService struct {
	repo      playlistRepository
	access    *AccessService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPlaylistService constructs a PlaylistService instance.
func NewPlaylistService(repo playlistRepository, access *AccessService, validate *validator.Validate, logger *zap.Logger) *PlaylistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if access == nil {
		access = NewAccessService()
	}
	return &PlaylistService{repo: repo, access: access, validator: validate, logger: logger}
}

// Create creates a playlist owned by the principal.
func (s *PlaylistService) Create(ctx context.Context, principal *models.User, req CreatePlaylistRequest) (*models.Playlist, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid playlist payload")
	}
	if principal.Role != models.RoleTeacher && principal.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can create playlists")
	}

	playlist := &models.Playlist{
		OwnerID:     principal.ID,
		Title:       req.Title,
		Description: req.Description,
		Branch:      req.Branch,
		Year:        req.Year,
		Published:   req.Published,
	}
	if err := s.repo.Create(ctx, playlist); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create playlist")
	}
	return playlist, nil
}

// Get returns a playlist the principal may view.
func (s *PlaylistService) Get(ctx context.Context, principal *models.User, id string) (*models.Playlist, error) {
	playlist, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanView(principal, playlist.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this playlist")
	}
	return playlist, nil
}

// Update applies owner-mutable changes.
func (s *PlaylistService) Update(ctx context.Context, principal *models.User, id string, req UpdatePlaylistRequest) (*models.Playlist, error) {
	playlist, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanMutate(principal, playlist.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can modify this playlist")
	}

	if req.Title != nil {
		playlist.Title = *req.Title
	}
	if req.Description != nil {
		playlist.Description = *req.Description
	}
	if req.Branch != nil {
		playlist.Branch = *req.Branch
	}
	if req.Year != nil {
		playlist.Year = *req.Year
	}
	if req.Published != nil {
		playlist.Published = *req.Published
	}

	if err := s.repo.Update(ctx, playlist); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update playlist")
	}
	return playlist, nil
}

// Delete removes a playlist. Member videos are detached, not deleted.
func (s *PlaylistService) Delete(ctx context.Context, principal *models.User, id string) error {
	playlist, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !s.access.CanMutate(principal, playlist.AccessMeta()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can delete this playlist")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete playlist")
	}
	return nil
}

// GrantAccess allow-lists a user on the playlist.
func (s *PlaylistService) GrantAccess(ctx context.Context, principal *models.User, id, userID string) error {
	playlist, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !s.access.CanMutate(principal, playlist.AccessMeta()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can manage access")
	}
	if err := s.repo.GrantAccess(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant access")
	}
	return nil
}

// RevokeAccess removes a user from the allow-list.
func (s *PlaylistService) RevokeAccess(ctx context.Context, principal *models.User, id, userID string) error {
	playlist, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !s.access.CanMutate(principal, playlist.AccessMeta()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can manage access")
	}
	if err := s.repo.RevokeAccess(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke access")
	}
	return nil
}

// List returns playlists visible to the principal.
func (s *PlaylistService) List(ctx context.Context, principal *models.User, filter models.ContentFilter) ([]models.Playlist, *models.Pagination, error) {
	applyViewerScope(principal, &filter)

	playlists, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list playlists")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 10
	}
	return playlists, models.NewPagination(page, size, total), nil
}

func (s *PlaylistService) fetch(ctx context.Context, id string) (*models.Playlist, error) {
	playlist, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "playlist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load playlist")
	}
	return playlist, nil
}
