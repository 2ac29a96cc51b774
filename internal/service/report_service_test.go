package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type mockReportRepo struct {
	reports   map[string]*models.Report
	createErr error
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{reports: make(map[string]*models.Report)}
}

func (m *mockReportRepo) GetByID(ctx context.Context, id string) (*models.Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r, nil
}

func (m *mockReportRepo) Create(ctx context.Context, report *models.Report) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.reports {
		if existing.CommentID == report.CommentID && existing.ReporterID == report.ReporterID {
			return &pq.Error{Code: "23505"}
		}
	}
	if report.ID == "" {
		report.ID = fmt.Sprintf("r%d", len(m.reports)+1)
	}
	m.reports[report.ID] = report
	return nil
}

func (m *mockReportRepo) UpdateStatusFromPending(ctx context.Context, id string, status models.ReportStatus) (bool, error) {
	r, ok := m.reports[id]
	if !ok || r.Status != models.ReportPending {
		return false, nil
	}
	r.Status = status
	return true, nil
}

func (m *mockReportRepo) Delete(ctx context.Context, id string) error {
	delete(m.reports, id)
	return nil
}

func (m *mockReportRepo) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	var out []models.Report
	for _, r := range m.reports {
		if filter.ReporterID != "" && r.ReporterID != filter.ReporterID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

type mockAuditRecorder struct {
	logs []*models.AuditLog
}

func (m *mockAuditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newReportFixture() (*ReportService, *mockReportRepo, *mockAuditRecorder, *mockNotifier) {
	repo := newMockReportRepo()
	comments := newMockCommentRepo()
	comments.comments["c1"] = &models.Comment{ID: "c1", ContentType: models.ContentVideo, ContentID: "v1", UserID: "s1", Body: "spammy"}
	audit := &mockAuditRecorder{}
	notifier := &mockNotifier{}
	svc := NewReportService(repo, comments, audit, notifier, validator.New(), zap.NewNop())
	return svc, repo, audit, notifier
}

func TestCreateReport(t *testing.T) {
	svc, _, _, _ := newReportFixture()
	reporter := &models.User{ID: "s2", Role: models.RoleStudent}

	report, err := svc.Create(context.Background(), reporter, "c1", CreateReportRequest{Reason: models.ReportReasonSpam})
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, report.Status)
	assert.Equal(t, "s2", report.ReporterID)
}

func TestCreateReportSelfRejected(t *testing.T) {
	svc, _, _, _ := newReportFixture()
	author := &models.User{ID: "s1", Role: models.RoleStudent}

	_, err := svc.Create(context.Background(), author, "c1", CreateReportRequest{Reason: models.ReportReasonSpam})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSelfReport.Code, appErrors.FromError(err).Code)
}

func TestCreateReportDuplicateRejected(t *testing.T) {
	svc, _, _, _ := newReportFixture()
	reporter := &models.User{ID: "s2", Role: models.RoleStudent}

	_, err := svc.Create(context.Background(), reporter, "c1", CreateReportRequest{Reason: models.ReportReasonSpam})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), reporter, "c1", CreateReportRequest{Reason: models.ReportReasonHarassment})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateReport.Code, appErrors.FromError(err).Code)
}

func TestCreateReportOtherRequiresDetails(t *testing.T) {
	svc, _, _, _ := newReportFixture()
	reporter := &models.User{ID: "s2", Role: models.RoleStudent}

	_, err := svc.Create(context.Background(), reporter, "c1", CreateReportRequest{Reason: models.ReportReasonOther})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), reporter, "c1", CreateReportRequest{Reason: models.ReportReasonOther, Details: "off-platform harassment"})
	require.NoError(t, err)
}

func TestReviewReportOnceOnly(t *testing.T) {
	svc, _, audit, notifier := newReportFixture()
	reporter := &models.User{ID: "s2", Role: models.RoleStudent}
	admin := &models.User{ID: "a1", Role: models.RoleAdmin}

	report, err := svc.Create(context.Background(), reporter, "c1", CreateReportRequest{Reason: models.ReportReasonSpam})
	require.NoError(t, err)

	reviewed, err := svc.Review(context.Background(), admin, report.ID, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.ReportReviewed, reviewed.Status)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "s2", notifier.sent[0].UserID)
	assert.Equal(t, models.NotificationReportReviewed, notifier.sent[0].Type)
	assert.Len(t, audit.logs, 1)

	// A second resolution attempt loses to the state machine.
	_, err = svc.Ignore(context.Background(), admin, report.ID, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReviewReportAdminOnly(t *testing.T) {
	svc, _, _, _ := newReportFixture()
	reporter := &models.User{ID: "s2", Role: models.RoleStudent}

	report, err := svc.Create(context.Background(), reporter, "c1", CreateReportRequest{Reason: models.ReportReasonSpam})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), reporter, report.ID, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCancelReportAnyStatus(t *testing.T) {
	svc, repo, _, _ := newReportFixture()
	reporter := &models.User{ID: "s2", Role: models.RoleStudent}
	admin := &models.User{ID: "a1", Role: models.RoleAdmin}

	report, err := svc.Create(context.Background(), reporter, "c1", CreateReportRequest{Reason: models.ReportReasonSpam})
	require.NoError(t, err)
	_, err = svc.Review(context.Background(), admin, report.ID, models.LoginRequest{})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), reporter, report.ID))
	assert.Empty(t, repo.reports)
}

func TestCancelReportReporterOnly(t *testing.T) {
	svc, _, _, _ := newReportFixture()
	reporter := &models.User{ID: "s2", Role: models.RoleStudent}
	stranger := &models.User{ID: "s3", Role: models.RoleStudent}

	report, err := svc.Create(context.Background(), reporter, "c1", CreateReportRequest{Reason: models.ReportReasonSpam})
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), stranger, report.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
