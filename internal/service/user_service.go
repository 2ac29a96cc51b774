package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type adminUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	SetApproval(ctx context.Context, id string, approved bool) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type accountNotifier interface {
	Notify(userID string, notifType models.NotificationType, title, message string, payload models.Payload)
	NotifyMany(userIDs []string, notifType models.NotificationType, title, message string, payload models.Payload)
}

// UserService provides the admin-facing account management use cases.
type UserService struct {
	repo     adminUserRepository
	notifier accountNotifier
	logger   *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo adminUserRepository, notifier accountNotifier, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, notifier: notifier, logger: logger}
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 10
	}
	return users, models.NewPagination(page, size, total), nil
}

// Get returns a single user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Approve marks an account approved and notifies its owner.
func (s *UserService) Approve(ctx context.Context, id, actorID string, meta models.LoginRequest) error {
	return s.setApproval(ctx, id, actorID, true, meta)
}

// Reject marks an account unapproved and notifies its owner.
func (s *UserService) Reject(ctx context.Context, id, actorID string, meta models.LoginRequest) error {
	return s.setApproval(ctx, id, actorID, false, meta)
}

// ApproveMany approves each id, continuing past per-user failures, and
// notifies the updated accounts in a single batch. It returns the ids that
// failed.
func (s *UserService) ApproveMany(ctx context.Context, ids []string, actorID string, meta models.LoginRequest) []string {
	return s.setApprovalMany(ctx, ids, actorID, true, meta)
}

// RejectMany rejects each id, continuing past per-user failures, and
// notifies the updated accounts in a single batch.
func (s *UserService) RejectMany(ctx context.Context, ids []string, actorID string, meta models.LoginRequest) []string {
	return s.setApprovalMany(ctx, ids, actorID, false, meta)
}

// Delete removes an account. Admin accounts are never deleted; the guard is
// enforced both here and in the delete statement itself.
func (s *UserService) Delete(ctx context.Context, id, actorID string, meta models.LoginRequest) error {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if target.Role == models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "admin accounts cannot be deleted")
	}

	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	if n == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserDelete,
		Resource:   "user",
		ResourceID: &id,
		OldValues:  []byte(fmt.Sprintf(`{"email":%q,"role":%q}`, target.Email, target.Role)),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user delete audit log", zap.Error(err))
	}

	return nil
}

func approvalOutcome(approved bool) (action string, notifType models.NotificationType, title, message string) {
	if approved {
		return models.AuditActionUserApprove, models.NotificationAccountApproved,
			"Account approved", "Your account has been approved. You can now sign in."
	}
	return models.AuditActionUserReject, models.NotificationAccountRejected,
		"Account rejected", "Your account registration was rejected."
}

func (s *UserService) setApproval(ctx context.Context, id, actorID string, approved bool, meta models.LoginRequest) error {
	if err := s.applyApproval(ctx, id, actorID, approved, meta); err != nil {
		return err
	}

	_, notifType, title, message := approvalOutcome(approved)
	if s.notifier != nil {
		s.notifier.Notify(id, notifType, title, message, models.Payload{
			Account: &models.AccountRef{UserID: id},
		})
	}

	return nil
}

func (s *UserService) applyApproval(ctx context.Context, id, actorID string, approved bool, meta models.LoginRequest) error {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if target.Role == models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "admin approval state cannot be changed")
	}

	n, err := s.repo.SetApproval(ctx, id, approved)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update approval")
	}
	if n == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}

	action, _, _, _ := approvalOutcome(approved)
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "user",
		ResourceID: &id,
		NewValues:  []byte(fmt.Sprintf(`{"approved":%t}`, approved)),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record approval audit log", zap.Error(err))
	}

	return nil
}

func (s *UserService) setApprovalMany(ctx context.Context, ids []string, actorID string, approved bool, meta models.LoginRequest) []string {
	var failed, updated []string
	for _, id := range ids {
		if err := s.applyApproval(ctx, id, actorID, approved, meta); err != nil {
			s.logger.Warn("bulk approval update failed",
				zap.String("user_id", id),
				zap.Bool("approved", approved),
				zap.Error(err))
			failed = append(failed, id)
			continue
		}
		updated = append(updated, id)
	}

	// One enqueue for the whole batch. The affected account is the
	// recipient itself, so the shared payload carries no user id.
	if s.notifier != nil && len(updated) > 0 {
		_, notifType, title, message := approvalOutcome(approved)
		s.notifier.NotifyMany(updated, notifType, title, message, models.Payload{
			Account: &models.AccountRef{},
		})
	}

	return failed
}
