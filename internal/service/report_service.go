package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/repository"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type reportRepository interface {
	GetByID(ctx context.Context, id string) (*models.Report, error)
	Create(ctx context.Context, report *models.Report) error
	UpdateStatusFromPending(ctx context.Context, id string, status models.ReportStatus) (bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
}

type reportCommentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Comment, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateReportRequest carries the payload for flagging a comment.
type CreateReportRequest struct {
	Reason  string `json:"reason" validate:"required,oneof=spam harassment off_topic other"`
	Details string `json:"details"`
}

// ReportService owns comment reports and their review lifecycle.
type ReportService struct {
	repo      reportRepository
	comments  reportCommentRepository
	audit     auditRecorder
	notifier  accountNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService instance.
func NewReportService(repo reportRepository, comments reportCommentRepository, audit auditRecorder, notifier accountNotifier, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{repo: repo, comments: comments, audit: audit, notifier: notifier, validator: validate, logger: logger}
}

// Create flags a comment for review. Authors cannot report their own
// comments, each reporter gets one report per comment, and the catch-all
// "other" reason requires details.
func (s *ReportService) Create(ctx context.Context, principal *models.User, commentID string, req CreateReportRequest) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if req.Reason == models.ReportReasonOther && req.Details == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "details are required when the reason is other")
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}

	if comment.UserID == principal.ID {
		return nil, appErrors.Clone(appErrors.ErrSelfReport, "you cannot report your own comment")
	}

	report := &models.Report{
		CommentID:  commentID,
		ReporterID: principal.ID,
		Reason:     req.Reason,
		Details:    req.Details,
		Status:     models.ReportPending,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateReport, "you have already reported this comment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}
	return report, nil
}

// Review resolves a pending report as reviewed.
func (s *ReportService) Review(ctx context.Context, principal *models.User, reportID string, meta models.LoginRequest) (*models.Report, error) {
	return s.resolve(ctx, principal, reportID, models.ReportReviewed, meta)
}

// Ignore resolves a pending report as ignored.
func (s *ReportService) Ignore(ctx context.Context, principal *models.User, reportID string, meta models.LoginRequest) (*models.Report, error) {
	return s.resolve(ctx, principal, reportID, models.ReportIgnored, meta)
}

// Cancel withdraws a report. Only the reporter may cancel, and cancellation
// is allowed at any status.
func (s *ReportService) Cancel(ctx context.Context, principal *models.User, reportID string) error {
	report, err := s.fetch(ctx, reportID)
	if err != nil {
		return err
	}
	if report.ReporterID != principal.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the reporter can cancel a report")
	}
	if err := s.repo.Delete(ctx, reportID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel report")
	}
	return nil
}

// Get returns a report. Admins see every report, reporters their own.
func (s *ReportService) Get(ctx context.Context, principal *models.User, reportID string) (*models.Report, error) {
	report, err := s.fetch(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if principal.Role != models.RoleAdmin && report.ReporterID != principal.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this report")
	}
	return report, nil
}

// List returns reports matching the filter. Non-admins are restricted to
// their own reports.
func (s *ReportService) List(ctx context.Context, principal *models.User, filter models.ReportFilter) ([]models.Report, *models.Pagination, error) {
	if principal.Role != models.RoleAdmin {
		filter.ReporterID = principal.ID
	}

	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 10
	}
	return reports, models.NewPagination(page, size, total), nil
}

// resolve moves a pending report to a terminal status. The transition is
// guarded in SQL so two admins racing on the same report cannot both win.
func (s *ReportService) resolve(ctx context.Context, principal *models.User, reportID string, status models.ReportStatus, meta models.LoginRequest) (*models.Report, error) {
	if principal.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can resolve reports")
	}

	report, err := s.fetch(ctx, reportID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatusFromPending(ctx, reportID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report has already been resolved")
	}
	report.Status = status

	if s.notifier != nil {
		s.notifier.Notify(report.ReporterID, models.NotificationReportReviewed,
			"Report reviewed",
			"Your report has been reviewed by an admin",
			models.Payload{Report: &models.ReportRef{
				ReportID:  report.ID,
				CommentID: report.CommentID,
				Status:    status,
			}})
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &principal.ID,
			Action:     models.AuditActionReportReview,
			Resource:   "comment_report",
			ResourceID: &reportID,
			NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, status)),
			IPAddress:  meta.IP,
			UserAgent:  meta.UserAgent,
		}); err != nil {
			s.logger.Warn("failed to record report review audit log", zap.Error(err))
		}
	}

	return report, nil
}

func (s *ReportService) fetch(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}
