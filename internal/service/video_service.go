package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/repository"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type videoRepository interface {
	GetByID(ctx context.Context, id string) (*models.Video, error)
	Create(ctx context.Context, video *models.Video) error
	Update(ctx context.Context, video *models.Video) error
	Delete(ctx context.Context, id string) error
	GrantAccess(ctx context.Context, id, userID string) error
	RevokeAccess(ctx context.Context, id, userID string) error
	List(ctx context.Context, filter models.ContentFilter) ([]models.Video, int, error)
}

type mediaStore interface {
	NewKey(kind, originalName string) string
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	Destroy(key string) error
	URL(key string) string
}

type contentUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type cohortBroadcaster interface {
	BroadcastToCohort(ctx context.Context, branch, year string, notifType models.NotificationType, title, message string, payload models.Payload)
}

type contentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UploadVideoRequest carries the metadata and stream for a video upload.
type UploadVideoRequest struct {
	Title           string `validate:"required"`
	Description     string
	Branch          string `validate:"required"`
	Year            string `validate:"required"`
	DurationSeconds int
	PlaylistID      *string
	FileName        string `validate:"required"`
	ContentType     string
	Size            int64
	File            io.Reader `validate:"required"`
}

// UpdateVideoRequest carries owner-mutable video fields.
type UpdateVideoRequest struct {
	Title           *string
	Description     *string
	Branch          *string
	Year            *string
	DurationSeconds *int
	PlaylistID      *string
	ClearPlaylist   bool
}

// VideoConfig tunes the upload path and the detail cache.
type VideoConfig struct {
	UploadTimeout    time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	CacheTTL         time.Duration
}

// VideoService owns lecture video CRUD, uploads, publication and allow-list
// management.
type VideoService struct {
	repo      videoRepository
	users     contentUserRepository
	media     mediaStore
	access    *AccessService
	notifier  cohortBroadcaster
	cache     contentCache
	validator *validator.Validate
	logger    *zap.Logger
	config    VideoConfig
}

// NewVideoService constructs a VideoService instance.
func NewVideoService(repo videoRepository, users contentUserRepository, media mediaStore, access *AccessService, notifier cohortBroadcaster, cache contentCache, validate *validator.Validate, logger *zap.Logger, config VideoConfig) *VideoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if access == nil {
		access = NewAccessService()
	}
	if config.UploadTimeout <= 0 {
		config.UploadTimeout = 5 * time.Minute
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &VideoService{
		repo:      repo,
		users:     users,
		media:     media,
		access:    access,
		notifier:  notifier,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Upload stores the video stream and creates the unpublished record. The
// transfer runs under its own timeout, independent of the request timeout,
// and the stored object is removed again if the database insert fails.
func (s *VideoService) Upload(ctx context.Context, principal *models.User, req UploadVideoRequest) (*models.Video, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload payload")
	}
	if principal.Role != models.RoleTeacher && principal.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can upload videos")
	}
	if s.config.MaxFileSizeBytes > 0 && req.Size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
	}
	if len(s.config.AllowedMIMEs) > 0 && req.ContentType != "" && !s.mimeAllowed(req.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported media type")
	}

	key := s.media.NewKey("videos", req.FileName)

	uploadCtx, cancel := context.WithTimeout(ctx, s.config.UploadTimeout)
	defer cancel()

	if _, err := s.media.Save(uploadCtx, key, req.File); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code, appErrors.ErrDependencyFailure.Status, "failed to store video")
	}

	video := &models.Video{
		OwnerID:         principal.ID,
		Title:           req.Title,
		Description:     req.Description,
		Branch:          req.Branch,
		Year:            req.Year,
		Published:       false,
		ObjectKey:       key,
		URL:             s.media.URL(key),
		DurationSeconds: req.DurationSeconds,
		PlaylistID:      req.PlaylistID,
	}

	if err := s.repo.Create(ctx, video); err != nil {
		if destroyErr := s.media.Destroy(key); destroyErr != nil {
			s.logger.Warn("failed to remove orphaned video object", zap.String("key", key), zap.Error(destroyErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create video")
	}

	s.logger.Info("video uploaded",
		zap.String("video_id", video.ID),
		zap.String("owner_id", principal.ID),
		zap.Int64("size", req.Size))

	return video, nil
}

// Get returns a video the principal may view. Details are served from the
// cache when possible; the access check always runs against the returned
// snapshot.
func (s *VideoService) Get(ctx context.Context, principal *models.User, id string) (*models.Video, error) {
	video, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanView(principal, video.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this video")
	}
	return video, nil
}

// Update applies owner-mutable changes.
func (s *VideoService) Update(ctx context.Context, principal *models.User, id string, req UpdateVideoRequest) (*models.Video, error) {
	video, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanMutate(principal, video.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can modify this video")
	}

	if req.Title != nil {
		video.Title = *req.Title
	}
	if req.Description != nil {
		video.Description = *req.Description
	}
	if req.Branch != nil {
		video.Branch = *req.Branch
	}
	if req.Year != nil {
		video.Year = *req.Year
	}
	if req.DurationSeconds != nil {
		video.DurationSeconds = *req.DurationSeconds
	}
	if req.ClearPlaylist {
		video.PlaylistID = nil
	} else if req.PlaylistID != nil {
		video.PlaylistID = req.PlaylistID
	}

	if err := s.repo.Update(ctx, video); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update video")
	}
	s.invalidate(ctx, id)
	return video, nil
}

// Delete removes the video record and its stored media object.
func (s *VideoService) Delete(ctx context.Context, principal *models.User, id string) error {
	video, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !s.access.CanMutate(principal, video.AccessMeta()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can delete this video")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete video")
	}
	if video.ObjectKey != "" {
		if err := s.media.Destroy(video.ObjectKey); err != nil {
			s.logger.Warn("failed to remove video object", zap.String("key", video.ObjectKey), zap.Error(err))
		}
	}
	s.invalidate(ctx, id)
	return nil
}

// Publish makes the video visible and notifies the cohort it is scoped to.
// The recipient set is resolved at publish time.
func (s *VideoService) Publish(ctx context.Context, principal *models.User, id string) (*models.Video, error) {
	video, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanMutate(principal, video.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can publish this video")
	}
	if video.Published {
		return video, nil
	}

	video.Published = true
	if err := s.repo.Update(ctx, video); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish video")
	}
	s.invalidate(ctx, id)

	if s.notifier != nil {
		s.notifier.BroadcastToCohort(ctx, video.Branch, video.Year, models.NotificationVideoPublished,
			"New video available",
			"A new video was published: "+video.Title,
			models.Payload{Content: &models.ContentRef{
				ContentType: models.ContentVideo,
				ContentID:   video.ID,
				Title:       video.Title,
				ActorID:     principal.ID,
				ActorName:   principal.FullName,
			}})
	}
	return video, nil
}

// Unpublish hides the video again without touching its media.
func (s *VideoService) Unpublish(ctx context.Context, principal *models.User, id string) (*models.Video, error) {
	video, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanMutate(principal, video.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can unpublish this video")
	}
	if !video.Published {
		return video, nil
	}
	video.Published = false
	if err := s.repo.Update(ctx, video); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unpublish video")
	}
	s.invalidate(ctx, id)
	return video, nil
}

// GrantAccess allow-lists a user on the video.
func (s *VideoService) GrantAccess(ctx context.Context, principal *models.User, id, userID string) error {
	video, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !s.access.CanMutate(principal, video.AccessMeta()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can manage access")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := s.repo.GrantAccess(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant access")
	}
	s.invalidate(ctx, id)
	return nil
}

// RevokeAccess removes a user from the allow-list.
func (s *VideoService) RevokeAccess(ctx context.Context, principal *models.User, id, userID string) error {
	video, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !s.access.CanMutate(principal, video.AccessMeta()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can manage access")
	}
	if err := s.repo.RevokeAccess(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke access")
	}
	s.invalidate(ctx, id)
	return nil
}

// List returns videos visible to the principal. Students get the visibility
// rule applied in SQL; teachers default to their own uploads unless they ask
// for another owner; admins see everything.
func (s *VideoService) List(ctx context.Context, principal *models.User, filter models.ContentFilter) ([]models.Video, *models.Pagination, error) {
	applyViewerScope(principal, &filter)

	videos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list videos")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 10
	}
	return videos, models.NewPagination(page, size, total), nil
}

func (s *VideoService) fetch(ctx context.Context, id string) (*models.Video, error) {
	key := repository.VideoCacheKey(id)
	if s.cache != nil {
		var cached models.Video
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	video, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "video not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load video")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, video, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache video detail", zap.String("video_id", id), zap.Error(err))
		}
	}
	return video, nil
}

func (s *VideoService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.VideoCacheKey(id)); err != nil {
		s.logger.Warn("failed to invalidate video cache", zap.String("video_id", id), zap.Error(err))
	}
}

func (s *VideoService) mimeAllowed(contentType string) bool {
	for _, m := range s.config.AllowedMIMEs {
		if m == contentType {
			return true
		}
	}
	return false
}

// applyViewerScope narrows a content filter to what the principal may see.
// Shared by the video, notice and playlist listings so the three surfaces
// stay consistent.
func applyViewerScope(principal *models.User, filter *models.ContentFilter) {
	switch principal.Role {
	case models.RoleStudent:
		filter.OwnerID = ""
		filter.ViewerID = principal.ID
		filter.ViewerBranch = principal.Branch
		filter.ViewerYear = principal.Year
	case models.RoleTeacher:
		filter.ViewerID = ""
		if filter.OwnerID == "" {
			filter.OwnerID = principal.ID
		}
	case models.RoleAdmin:
		filter.ViewerID = ""
	}
}
