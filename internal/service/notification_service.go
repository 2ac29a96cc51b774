package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/repository"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
	"github.com/lecturehub/lecturehub-api/pkg/jobs"
)

type notificationRepository interface {
	CreateMany(ctx context.Context, ns []models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

type cohortRepository interface {
	ListCohortStudentIDs(ctx context.Context, branch, year string) ([]string, error)
}

type unreadCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NotificationConfig tunes the fan-out worker pool and the unread counter
// cache.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	UnreadTTL  time.Duration
}

// NotificationService owns notification fan-out and the recipient inbox.
// Fan-out runs through an in-memory worker queue so a slow or failing insert
// never delays or fails the mutation that triggered it.
type NotificationService struct {
	repo    notificationRepository
	users   cohortRepository
	cache   unreadCache
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	config  NotificationConfig
}

// NewNotificationService constructs the service and its worker queue. Call
// Start before enqueueing and Stop on shutdown.
func NewNotificationService(repo notificationRepository, users cohortRepository, cache unreadCache, logger *zap.Logger, config NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.UnreadTTL <= 0 {
		config.UnreadTTL = time.Minute
	}
	s := &NotificationService{
		repo:   repo,
		users:  users,
		cache:  cache,
		logger: logger,
		config: config,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    config.Workers,
		BufferSize: config.BufferSize,
		MaxRetries: config.MaxRetries,
		RetryDelay: config.RetryDelay,
		Logger:     logger,
	})
	return s
}

// SetMetrics attaches instrumentation and exposes the queue depth gauge.
func (s *NotificationService) SetMetrics(m *MetricsService) {
	s.metrics = m
	if m != nil {
		m.RegisterQueueDepth(s.queue.Depth)
	}
}

// Start launches the fan-out workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// QueueDepth reports the number of pending fan-out jobs.
func (s *NotificationService) QueueDepth() int {
	return s.queue.Depth()
}

// Notify enqueues a single-recipient notification. Failures are logged and
// swallowed so the triggering mutation is never affected.
func (s *NotificationService) Notify(userID string, notifType models.NotificationType, title, message string, payload models.Payload) {
	s.NotifyMany([]string{userID}, notifType, title, message, payload)
}

// NotifyMany enqueues one notification per recipient.
func (s *NotificationService) NotifyMany(userIDs []string, notifType models.NotificationType, title, message string, payload models.Payload) {
	if len(userIDs) == 0 {
		return
	}
	ns := make([]models.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		ns = append(ns, models.Notification{
			UserID:  id,
			Type:    notifType,
			Title:   title,
			Message: message,
			Payload: payload,
		})
	}
	job := jobs.Job{ID: uuid.NewString(), Type: string(notifType), Payload: ns}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification fan-out",
			zap.String("type", string(notifType)),
			zap.Int("recipients", len(ns)),
			zap.Error(err))
		return
	}
	s.metrics.ObserveFanout(string(notifType), len(ns))
}

// BroadcastToCohort resolves the approved, active students inside the given
// scope at call time and notifies each of them. The recipient set is a
// point-in-time snapshot; students joining the cohort later do not receive
// the notification.
func (s *NotificationService) BroadcastToCohort(ctx context.Context, branch, year string, notifType models.NotificationType, title, message string, payload models.Payload) {
	ids, err := s.users.ListCohortStudentIDs(ctx, branch, year)
	if err != nil {
		s.logger.Warn("failed to resolve broadcast recipients",
			zap.String("branch", branch),
			zap.String("year", year),
			zap.Error(err))
		return
	}
	s.NotifyMany(ids, notifType, title, message, payload)
}

// deliver is the queue handler. It persists the batch and invalidates the
// recipients' cached unread counts.
func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	ns, ok := job.Payload.([]models.Notification)
	if !ok {
		s.logger.Error("dropping notification job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	start := time.Now()
	if err := s.repo.CreateMany(ctx, ns); err != nil {
		return err
	}
	s.metrics.ObserveDelivery(time.Since(start))
	if s.cache != nil {
		for _, n := range ns {
			if err := s.cache.Delete(ctx, repository.UnreadCountCacheKey(n.UserID)); err != nil {
				s.logger.Warn("failed to invalidate unread count cache", zap.String("user_id", n.UserID), zap.Error(err))
			}
		}
	}
	return nil
}

// List returns a page of the recipient's notifications.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	ns, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 10
	}
	return ns, models.NewPagination(page, size, total), nil
}

// UnreadCount returns the recipient's unread notification count, served from
// cache when possible.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	key := repository.UnreadCountCacheKey(userID)
	if s.cache != nil {
		var cached int64
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, count, s.config.UnreadTTL); err != nil {
			s.logger.Warn("failed to cache unread count", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return count, nil
}

// MarkRead marks a single notification as read. The update is scoped to the
// recipient, so marking someone else's notification reports not found.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	updated, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification of the recipient as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	s.invalidateUnread(ctx, userID)
	return n, nil
}

// Delete removes a single notification owned by the recipient.
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// DeleteAll removes every notification of the recipient.
func (s *NotificationService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notifications")
	}
	s.invalidateUnread(ctx, userID)
	return n, nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.UnreadCountCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate unread count cache", zap.String("user_id", userID), zap.Error(err))
	}
}
