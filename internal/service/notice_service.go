package service

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type noticeRepository interface {
	GetByID(ctx context.Context, id string) (*models.Notice, error)
	Create(ctx context.Context, notice *models.Notice) error
	Update(ctx context.Context, notice *models.Notice) error
	Delete(ctx context.Context, id string) error
	GrantAccess(ctx context.Context, id, userID string) error
	RevokeAccess(ctx context.Context, id, userID string) error
	List(ctx context.Context, filter models.ContentFilter) ([]models.Notice, int, error)
}

// CreateNoticeRequest carries the payload for posting a notice.
type CreateNoticeRequest struct {
	Title   string `validate:"required"`
	Body    string `validate:"required"`
	Branch  string `validate:"required"`
	Year    string `validate:"required"`
	Publish bool

	AttachmentName string
	Attachment     io.Reader
}

// UpdateNoticeRequest carries owner-mutable notice fields.
type UpdateNoticeRequest struct {
	Title  *string
	Body   *string
	Branch *string
	Year   *string
}

// NoticeService owns announcement CRUD and the publish broadcast.
type NoticeService struct {
	repo      noticeRepository
	media     mediaStore
	access    *AccessService
	notifier  cohortBroadcaster
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoticeService constructs a NoticeService instance.
func NewNoticeService(repo noticeRepository, media mediaStore, access *AccessService, notifier cohortBroadcaster, validate *validator.Validate, logger *zap.Logger) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if access == nil {
		access = NewAccessService()
	}
	return &NoticeService{repo: repo, media: media, access: access, notifier: notifier, validator: validate, logger: logger}
}

// Create posts a notice, optionally with an attachment, and broadcasts it to
// the cohort when published immediately.
func (s *NoticeService) Create(ctx context.Context, principal *models.User, req CreateNoticeRequest) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}
	if principal.Role != models.RoleTeacher && principal.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers can post notices")
	}

	notice := &models.Notice{
		OwnerID:   principal.ID,
		Title:     req.Title,
		Body:      req.Body,
		Branch:    req.Branch,
		Year:      req.Year,
		Published: req.Publish,
	}

	if req.Attachment != nil && req.AttachmentName != "" {
		key := s.media.NewKey("notices", req.AttachmentName)
		if _, err := s.media.Save(ctx, key, req.Attachment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code, appErrors.ErrDependencyFailure.Status, "failed to store attachment")
		}
		notice.AttachmentKey = key
		notice.AttachmentURL = s.media.URL(key)
	}

	if err := s.repo.Create(ctx, notice); err != nil {
		if notice.AttachmentKey != "" {
			if destroyErr := s.media.Destroy(notice.AttachmentKey); destroyErr != nil {
				s.logger.Warn("failed to remove orphaned attachment", zap.String("key", notice.AttachmentKey), zap.Error(destroyErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notice")
	}

	if notice.Published {
		s.broadcast(ctx, principal, notice)
	}
	return notice, nil
}

// Get returns a notice the principal may view.
func (s *NoticeService) Get(ctx context.Context, principal *models.User, id string) (*models.Notice, error) {
	notice, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanView(principal, notice.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this notice")
	}
	return notice, nil
}

// Update applies owner-mutable changes.
func (s *NoticeService) Update(ctx context.Context, principal *models.User, id string, req UpdateNoticeRequest) (*models.Notice, error) {
	notice, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanMutate(principal, notice.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can modify this notice")
	}

	if req.Title != nil {
		notice.Title = *req.Title
	}
	if req.Body != nil {
		notice.Body = *req.Body
	}
	if req.Branch != nil {
		notice.Branch = *req.Branch
	}
	if req.Year != nil {
		notice.Year = *req.Year
	}

	if err := s.repo.Update(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notice")
	}
	return notice, nil
}

// Delete removes a notice and its attachment, if any.
func (s *NoticeService) Delete(ctx context.Context, principal *models.User, id string) error {
	notice, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !s.access.CanMutate(principal, notice.AccessMeta()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can delete this notice")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notice")
	}
	if notice.AttachmentKey != "" {
		if err := s.media.Destroy(notice.AttachmentKey); err != nil {
			s.logger.Warn("failed to remove notice attachment", zap.String("key", notice.AttachmentKey), zap.Error(err))
		}
	}
	return nil
}

// Publish makes the notice visible and broadcasts it to its cohort.
func (s *NoticeService) Publish(ctx context.Context, principal *models.User, id string) (*models.Notice, error) {
	notice, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanMutate(principal, notice.AccessMeta()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner can publish this notice")
	}
	if notice.Published {
		return notice, nil
	}

	notice.Published = true
	if err := s.repo.Update(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish notice")
	}
	s.broadcast(ctx, principal, notice)
	return notice, nil
}

// GrantAccess allow-lists a user on the notice.
func (s *NoticeService) GrantAccess(ctx context.Context, principal *models.User, id, userID string) error {
	notice, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !s.access.CanMutate(principal, notice.AccessMeta()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can manage access")
	}
	if err := s.repo.GrantAccess(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant access")
	}
	return nil
}

// RevokeAccess removes a user from the allow-list.
func (s *NoticeService) RevokeAccess(ctx context.Context, principal *models.User, id, userID string) error {
	notice, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !s.access.CanMutate(principal, notice.AccessMeta()) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owner can manage access")
	}
	if err := s.repo.RevokeAccess(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke access")
	}
	return nil
}

// List returns notices visible to the principal.
func (s *NoticeService) List(ctx context.Context, principal *models.User, filter models.ContentFilter) ([]models.Notice, *models.Pagination, error) {
	applyViewerScope(principal, &filter)

	notices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 10
	}
	return notices, models.NewPagination(page, size, total), nil
}

func (s *NoticeService) fetch(ctx context.Context, id string) (*models.Notice, error) {
	notice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	return notice, nil
}

func (s *NoticeService) broadcast(ctx context.Context, principal *models.User, notice *models.Notice) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToCohort(ctx, notice.Branch, notice.Year, models.NotificationNoticePosted,
		"New notice",
		notice.Title,
		models.Payload{Content: &models.ContentRef{
			ContentType: models.ContentNotice,
			ContentID:   notice.ID,
			Title:       notice.Title,
			ActorID:     principal.ID,
			ActorName:   principal.FullName,
		}})
}
