package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/repository"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type engagementRepository interface {
	FindLike(ctx context.Context, contentType models.ContentType, contentID, userID string) (*models.Like, error)
	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, contentType models.ContentType, contentID, userID string) (bool, error)
	CountLikes(ctx context.Context, contentType models.ContentType, contentID string) (int64, error)
	UpsertView(ctx context.Context, view *models.VideoView) (bool, error)
	FindView(ctx context.Context, videoID, userID string) (*models.VideoView, error)
	ListViewsForVideo(ctx context.Context, videoID string, params models.PageParams) ([]models.VideoView, int, error)
}

type likedVideoRepository interface {
	GetByID(ctx context.Context, id string) (*models.Video, error)
	IncrementLikes(ctx context.Context, id string, delta int) error
}

type likedNoticeRepository interface {
	GetByID(ctx context.Context, id string) (*models.Notice, error)
}

type likedPlaylistRepository interface {
	GetByID(ctx context.Context, id string) (*models.Playlist, error)
}

// RecordViewRequest carries watch progress for a video.
type RecordViewRequest struct {
	WatchTime     int     `validate:"min=0"`
	CompletionPct float64 `validate:"min=0,max=100"`
	LastPosition  int     `validate:"min=0"`
}

// ToggleLikeResult reports the state after a like toggle.
type ToggleLikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// EngagementService owns likes and video watch history.
type EngagementService struct {
	repo      engagementRepository
	videos    likedVideoRepository
	notices   likedNoticeRepository
	playlists likedPlaylistRepository
	access    *AccessService
	notifier  accountNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEngagementService constructs an EngagementService instance.
func NewEngagementService(repo engagementRepository, videos likedVideoRepository, notices likedNoticeRepository, playlists likedPlaylistRepository, access *AccessService, notifier accountNotifier, validate *validator.Validate, logger *zap.Logger) *EngagementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if access == nil {
		access = NewAccessService()
	}
	return &EngagementService{
		repo:      repo,
		videos:    videos,
		notices:   notices,
		playlists: playlists,
		access:    access,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// ToggleLike flips the principal's like on a content item. A like that races
// with itself surfaces as Conflict through the unique index; the denormalized
// video counter moves atomically with the toggle. Liking (not unliking)
// notifies the owner unless they liked their own item.
func (s *EngagementService) ToggleLike(ctx context.Context, principal *models.User, contentType models.ContentType, contentID string) (*ToggleLikeResult, error) {
	if !contentType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown content type")
	}

	meta, title, err := s.contentMeta(ctx, contentType, contentID)
	if err != nil {
		return nil, err
	}
	if !s.access.CanView(principal, meta) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this content")
	}

	_, err = s.repo.FindLike(ctx, contentType, contentID, principal.ID)
	switch {
	case err == nil:
		// Already liked: unlike.
		removed, err := s.repo.DeleteLike(ctx, contentType, contentID, principal.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove like")
		}
		if removed && contentType == models.ContentVideo {
			if err := s.videos.IncrementLikes(ctx, contentID, -1); err != nil {
				s.logger.Warn("failed to decrement like counter", zap.String("video_id", contentID), zap.Error(err))
			}
		}
		return s.likeResult(ctx, contentType, contentID, false)

	case errors.Is(err, sql.ErrNoRows):
		like := &models.Like{ContentType: contentType, ContentID: contentID, UserID: principal.ID}
		if err := s.repo.CreateLike(ctx, like); err != nil {
			if repository.IsUniqueViolation(err) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "like already recorded")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record like")
		}
		if contentType == models.ContentVideo {
			if err := s.videos.IncrementLikes(ctx, contentID, 1); err != nil {
				s.logger.Warn("failed to increment like counter", zap.String("video_id", contentID), zap.Error(err))
			}
		}
		if s.notifier != nil && meta.OwnerID != principal.ID {
			s.notifier.Notify(meta.OwnerID, models.NotificationVideoLiked,
				"Your content was liked",
				principal.FullName+" liked "+title,
				models.Payload{Content: &models.ContentRef{
					ContentType: contentType,
					ContentID:   contentID,
					Title:       title,
					ActorID:     principal.ID,
					ActorName:   principal.FullName,
				}})
		}
		return s.likeResult(ctx, contentType, contentID, true)

	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load like")
	}
}

// RecordView upserts the principal's watch progress for a video. The video
// view counter moves only on the first view; repeat submissions update the
// metrics without a zero input ever erasing stored progress.
func (s *EngagementService) RecordView(ctx context.Context, principal *models.User, videoID string, req RecordViewRequest) (*models.VideoView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid view payload")
	}

	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "video not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load video")
	}
	if !s.access.CanView(principal, video.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this video")
	}

	view := &models.VideoView{
		VideoID:       videoID,
		UserID:        principal.ID,
		WatchTime:     req.WatchTime,
		CompletionPct: req.CompletionPct,
		LastPosition:  req.LastPosition,
		WatchedAt:     time.Now().UTC(),
	}
	if _, err := s.repo.UpsertView(ctx, view); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record view")
	}
	return view, nil
}

// WatchProgress returns the principal's stored progress for a video.
func (s *EngagementService) WatchProgress(ctx context.Context, principal *models.User, videoID string) (*models.VideoView, error) {
	view, err := s.repo.FindView(ctx, videoID, principal.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no watch history for this video")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load watch history")
	}
	return view, nil
}

// ListViews returns the watch records for a video. Only the owner and admins
// may inspect them.
func (s *EngagementService) ListViews(ctx context.Context, principal *models.User, videoID string, params models.PageParams) ([]models.VideoView, *models.Pagination, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "video not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load video")
	}
	if !s.access.CanMutate(principal, video.AccessMeta()) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can inspect watch history")
	}

	views, total, err := s.repo.ListViewsForVideo(ctx, videoID, params)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list views")
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	size := params.PageSize
	if size < 1 {
		size = 10
	}
	return views, models.NewPagination(page, size, total), nil
}

func (s *EngagementService) likeResult(ctx context.Context, contentType models.ContentType, contentID string, liked bool) (*ToggleLikeResult, error) {
	count, err := s.repo.CountLikes(ctx, contentType, contentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count likes")
	}
	return &ToggleLikeResult{Liked: liked, LikesCount: count}, nil
}

func (s *EngagementService) contentMeta(ctx context.Context, contentType models.ContentType, contentID string) (models.ContentMeta, string, error) {
	return resolveContentMeta(ctx, s.videos, s.notices, s.playlists, contentType, contentID)
}

// resolveContentMeta loads the access snapshot and title for any content
// variant. Shared by the engagement and comment services.
func resolveContentMeta(ctx context.Context, videos likedVideoRepository, notices likedNoticeRepository, playlists likedPlaylistRepository, contentType models.ContentType, contentID string) (models.ContentMeta, string, error) {
	var (
		meta  models.ContentMeta
		title string
		err   error
	)
	switch contentType {
	case models.ContentVideo:
		var video *models.Video
		if video, err = videos.GetByID(ctx, contentID); err == nil {
			meta, title = video.AccessMeta(), video.Title
		}
	case models.ContentNotice:
		var notice *models.Notice
		if notice, err = notices.GetByID(ctx, contentID); err == nil {
			meta, title = notice.AccessMeta(), notice.Title
		}
	case models.ContentPlaylist:
		var playlist *models.Playlist
		if playlist, err = playlists.GetByID(ctx, contentID); err == nil {
			meta, title = playlist.AccessMeta(), playlist.Title
		}
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ContentMeta{}, "", appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return models.ContentMeta{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	return meta, title, nil
}
