package service

import (
	"context"
	"database/sql"
	"errors"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type commentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	Create(ctx context.Context, comment *models.Comment) error
	DeleteTree(ctx context.Context, id string) (int64, error)
	ToggleLike(ctx context.Context, id, userID string) ([]string, error)
	List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, int, error)
}

// AddCommentRequest carries the payload for posting a comment.
type AddCommentRequest struct {
	Body     string `json:"body" validate:"required"`
	ParentID string `json:"parent_id"`
}

const maxCommentLength = 2000

// CommentService owns comments on content items, including the flat reply
// model and per-comment likes.
type CommentService struct {
	repo      commentRepository
	videos    likedVideoRepository
	notices   likedNoticeRepository
	playlists likedPlaylistRepository
	access    *AccessService
	notifier  accountNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommentService constructs a CommentService instance.
func NewCommentService(repo commentRepository, videos likedVideoRepository, notices likedNoticeRepository, playlists likedPlaylistRepository, access *AccessService, notifier accountNotifier, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if access == nil {
		access = NewAccessService()
	}
	return &CommentService{
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

// Add posts a comment or a reply. Replies always anchor to the top-level
// ancestor of the referenced comment, which must live on the same content
// item. The content owner is notified of top-level comments and the replied-to
// author of replies; nobody is notified about their own activity.
func (s *CommentService) Add(ctx context.Context, principal *models.User, contentType models.ContentType, contentID string, req AddCommentRequest) (*models.Comment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	if !contentType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown content type")
	}
	if utf8.RuneCountInString(req.Body) > maxCommentLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment is too long")
	}

	meta, title, err := resolveContentMeta(ctx, s.videos, s.notices, s.playlists, contentType, contentID)
	if err != nil {
		return nil, err
	}
	if !s.access.CanView(principal, meta) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this content")
	}

	comment := &models.Comment{
		ContentType: contentType,
		ContentID:   contentID,
		UserID:      principal.ID,
		Body:        req.Body,
	}

	var replyTo *models.Comment
	if req.ParentID != "" {
		replyTo, err = s.repo.GetByID(ctx, req.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "parent comment not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent comment")
		}
		if replyTo.ContentType != contentType || replyTo.ContentID != contentID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "parent comment belongs to different content")
		}
		anchor := replyTo.ID
		if replyTo.ParentID != nil {
			anchor = *replyTo.ParentID
		}
		comment.ParentID = &anchor
	}

	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}

	s.notifyAdded(principal, comment, replyTo, meta, title)
	return comment, nil
}

// Delete removes a comment. Only its author and admins may. Deleting a
// top-level comment takes its direct replies with it in a single statement.
func (s *CommentService) Delete(ctx context.Context, principal *models.User, commentID string) error {
	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}

	if comment.UserID != principal.ID && principal.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author can delete this comment")
	}

	n, err := s.repo.DeleteTree(ctx, commentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	if n == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
	}
	return nil
}

// ToggleLike flips the principal's like on a comment. The membership toggle
// happens atomically in the database.
func (s *CommentService) ToggleLike(ctx context.Context, principal *models.User, commentID string) (*ToggleLikeResult, error) {
	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}

	meta, _, err := resolveContentMeta(ctx, s.videos, s.notices, s.playlists, comment.ContentType, comment.ContentID)
	if err != nil {
		return nil, err
	}
	if !s.access.CanView(principal, meta) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this content")
	}

	likedBy, err := s.repo.ToggleLike(ctx, commentID, principal.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle comment like")
	}

	liked := false
	for _, id := range likedBy {
		if id == principal.ID {
			liked = true
			break
		}
	}
	return &ToggleLikeResult{Liked: liked, LikesCount: int64(len(likedBy))}, nil
}

// List returns comments for a content item the principal may view. With
// TopLevel set only top-level comments are returned; replies are fetched
// through the ParentID filter.
func (s *CommentService) List(ctx context.Context, principal *models.User, filter models.CommentFilter) ([]models.Comment, *models.Pagination, error) {
	meta, _, err := resolveContentMeta(ctx, s.videos, s.notices, s.playlists, filter.ContentType, filter.ContentID)
	if err != nil {
		return nil, nil, err
	}
	if !s.access.CanView(principal, meta) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this content")
	}

	comments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 10
	}
	return comments, models.NewPagination(page, size, total), nil
}

func (s *CommentService) notifyAdded(principal *models.User, comment *models.Comment, replyTo *models.Comment, meta models.ContentMeta, title string) {
	if s.notifier == nil {
		return
	}

	excerpt := comment.Body
	if utf8.RuneCountInString(excerpt) > 120 {
		excerpt = string([]rune(excerpt)[:120])
	}
	ref := &models.CommentRef{
		ContentType: comment.ContentType,
		ContentID:   comment.ContentID,
		CommentID:   comment.ID,
		ActorID:     principal.ID,
		ActorName:   principal.FullName,
		Excerpt:     excerpt,
	}

	if replyTo != nil {
		if replyTo.UserID == principal.ID {
			return
		}
		s.notifier.Notify(replyTo.UserID, models.NotificationCommentReply,
			"New reply to your comment",
			principal.FullName+" replied to your comment",
			models.Payload{Comment: ref})
		return
	}

	if meta.OwnerID == principal.ID {
		return
	}
	s.notifier.Notify(meta.OwnerID, models.NotificationCommentAdded,
		"New comment",
		principal.FullName+" commented on "+title,
		models.Payload{Comment: ref})
}
