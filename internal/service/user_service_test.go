package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type mockAdminUserRepo struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
}

func newMockAdminUserRepo(users ...*models.User) *mockAdminUserRepo {
	m := &mockAdminUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAdminUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockAdminUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Approved != nil && u.Approved != *filter.Approved {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockAdminUserRepo) SetApproval(ctx context.Context, id string, approved bool) (int64, error) {
	u, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	u.Approved = approved
	return 1, nil
}

func (m *mockAdminUserRepo) Delete(ctx context.Context, id string) (int64, error) {
	u, ok := m.users[id]
	if !ok || u.Role == models.RoleAdmin {
		return 0, nil
	}
	delete(m.users, id)
	return 1, nil
}

func (m *mockAdminUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func TestApproveTeacherNotifies(t *testing.T) {
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher, Approved: false, Active: true}
	repo := newMockAdminUserRepo(teacher)
	notifier := &mockNotifier{}
	svc := NewUserService(repo, notifier, zap.NewNop())

	err := svc.Approve(context.Background(), "t1", "a1", models.LoginRequest{})
	require.NoError(t, err)
	assert.True(t, teacher.Approved)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "t1", notifier.sent[0].UserID)
	assert.Equal(t, models.NotificationAccountApproved, notifier.sent[0].Type)
	assert.Len(t, repo.auditLogs, 1)
}

func TestRejectTeacherNotifies(t *testing.T) {
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher, Approved: true, Active: true}
	repo := newMockAdminUserRepo(teacher)
	notifier := &mockNotifier{}
	svc := NewUserService(repo, notifier, zap.NewNop())

	err := svc.Reject(context.Background(), "t1", "a1", models.LoginRequest{})
	require.NoError(t, err)
	assert.False(t, teacher.Approved)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.NotificationAccountRejected, notifier.sent[0].Type)
}

func TestApproveUnknownUser(t *testing.T) {
	svc := NewUserService(newMockAdminUserRepo(), &mockNotifier{}, zap.NewNop())

	err := svc.Approve(context.Background(), "missing", "a1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteUserAdminTargetRejected(t *testing.T) {
	admin := &models.User{ID: "a2", Role: models.RoleAdmin}
	repo := newMockAdminUserRepo(admin)
	svc := NewUserService(repo, &mockNotifier{}, zap.NewNop())

	err := svc.Delete(context.Background(), "a2", "a1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Contains(t, repo.users, "a2")
}

func TestDeleteUser(t *testing.T) {
	student := &models.User{ID: "s1", Role: models.RoleStudent, Email: "student@example.com"}
	repo := newMockAdminUserRepo(student)
	svc := NewUserService(repo, &mockNotifier{}, zap.NewNop())

	err := svc.Delete(context.Background(), "s1", "a1", models.LoginRequest{})
	require.NoError(t, err)
	assert.NotContains(t, repo.users, "s1")
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserDelete, repo.auditLogs[0].Action)
}

func TestApproveManyContinuesPastFailures(t *testing.T) {
	t1 := &models.User{ID: "t1", Role: models.RoleTeacher}
	t2 := &models.User{ID: "t2", Role: models.RoleTeacher}
	repo := newMockAdminUserRepo(t1, t2)
	notifier := &mockNotifier{}
	svc := NewUserService(repo, notifier, zap.NewNop())

	failed := svc.ApproveMany(context.Background(), []string{"t1", "missing", "t2"}, "a1", models.LoginRequest{})
	assert.Equal(t, []string{"missing"}, failed)
	assert.True(t, t1.Approved)
	assert.True(t, t2.Approved)

	// The updated accounts go out as one batch, never per-user sends.
	assert.Empty(t, notifier.sent)
	require.Len(t, notifier.batches, 1)
	assert.Equal(t, []string{"t1", "t2"}, notifier.batches[0].UserIDs)
	assert.Equal(t, models.NotificationAccountApproved, notifier.batches[0].Type)
}

func TestRejectManyBatchesNotifications(t *testing.T) {
	t1 := &models.User{ID: "t1", Role: models.RoleTeacher, Approved: true}
	t2 := &models.User{ID: "t2", Role: models.RoleTeacher, Approved: true}
	repo := newMockAdminUserRepo(t1, t2)
	notifier := &mockNotifier{}
	svc := NewUserService(repo, notifier, zap.NewNop())

	failed := svc.RejectMany(context.Background(), []string{"t1", "t2"}, "a1", models.LoginRequest{})
	assert.Empty(t, failed)
	assert.False(t, t1.Approved)
	assert.False(t, t2.Approved)

	assert.Empty(t, notifier.sent)
	require.Len(t, notifier.batches, 1)
	assert.Equal(t, []string{"t1", "t2"}, notifier.batches[0].UserIDs)
	assert.Equal(t, models.NotificationAccountRejected, notifier.batches[0].Type)
}

func TestApproveManyAllFailuresSendsNothing(t *testing.T) {
	notifier := &mockNotifier{}
	svc := NewUserService(newMockAdminUserRepo(), notifier, zap.NewNop())

	failed := svc.ApproveMany(context.Background(), []string{"m1", "m2"}, "a1", models.LoginRequest{})
	assert.Equal(t, []string{"m1", "m2"}, failed)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, notifier.batches)
}
