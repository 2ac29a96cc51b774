package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/repository"
	"github.com/lecturehub/lecturehub-api/pkg/jobs"
)

func jobFor(userID string) jobs.Job {
	return jobs.Job{
		ID:   "job-1",
		Type: string(models.NotificationVideoLiked),
		Payload: []models.Notification{
			{UserID: userID, Type: models.NotificationVideoLiked, Title: "Liked", Message: "Someone liked your video"},
		},
	}
}

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []models.Notification
	unread        int64
	markedRead    []string
	markedAllFor  []string
}

func (m *mockNotificationRepo) CreateMany(ctx context.Context, ns []models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, ns...)
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == filter.UserID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	return m.unread, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications[i].Read = true
			m.markedRead = append(m.markedRead, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	m.markedAllFor = append(m.markedAllFor, userID)
	return 2, nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNotificationRepo) DeleteAll(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.Notification
	var removed int64
	for _, n := range m.notifications {
		if n.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return removed, nil
}

func (m *mockNotificationRepo) stored() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

type mockCohortRepo struct {
	byScope map[string][]string
}

func (m *mockCohortRepo) ListCohortStudentIDs(ctx context.Context, branch, year string) ([]string, error) {
	return m.byScope[branch+"/"+year], nil
}

type mockCache struct {
	mu      sync.Mutex
	values  map[string]interface{}
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{values: make(map[string]interface{})}
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return assert.AnError
	}
	if p, ok := dest.(*int64); ok {
		*p = v.(int64)
	}
	return nil
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func newNotificationFixture() (*NotificationService, *mockNotificationRepo, *mockCohortRepo, *mockCache) {
	repo := &mockNotificationRepo{}
	cohorts := &mockCohortRepo{byScope: map[string][]string{
		"CSE/2nd": {"s1", "s2"},
		"All/All": {"s1", "s2", "s3"},
	}}
	cache := newMockCache()
	svc := NewNotificationService(repo, cohorts, cache, zap.NewNop(), NotificationConfig{
		Workers:    1,
		BufferSize: 8,
		UnreadTTL:  time.Minute,
	})
	return svc, repo, cohorts, cache
}

func TestNotifyDeliversThroughQueue(t *testing.T) {
	svc, repo, _, _ := newNotificationFixture()
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify("s1", models.NotificationVideoLiked, "Liked", "Someone liked your video", models.Payload{
		Content: &models.ContentRef{ContentType: models.ContentVideo, ContentID: "v1"},
	})

	assert.Eventually(t, func() bool {
		return len(repo.stored()) == 1
	}, time.Second, 10*time.Millisecond)

	stored := repo.stored()[0]
	assert.Equal(t, "s1", stored.UserID)
	assert.Equal(t, models.NotificationVideoLiked, stored.Type)
}

func TestBroadcastSnapshotsCohortAtPublishTime(t *testing.T) {
	svc, repo, cohorts, _ := newNotificationFixture()
	svc.Start(context.Background())
	defer svc.Stop()

	svc.BroadcastToCohort(context.Background(), "CSE", "2nd", models.NotificationNoticePosted, "Notice", "Exam schedule", models.Payload{})

	// A student joining the cohort after the broadcast gets nothing.
	cohorts.byScope["CSE/2nd"] = append(cohorts.byScope["CSE/2nd"], "s9")

	assert.Eventually(t, func() bool {
		return len(repo.stored()) == 2
	}, time.Second, 10*time.Millisecond)

	recipients := map[string]bool{}
	for _, n := range repo.stored() {
		recipients[n.UserID] = true
	}
	assert.Equal(t, map[string]bool{"s1": true, "s2": true}, recipients)
}

func TestDeliverInvalidatesUnreadCache(t *testing.T) {
	svc, repo, _, cache := newNotificationFixture()
	cache.values[repository.UnreadCountCacheKey("s1")] = int64(3)

	err := svc.deliver(context.Background(), jobFor("s1"))
	require.NoError(t, err)
	assert.Len(t, repo.stored(), 1)
	assert.NotContains(t, cache.values, repository.UnreadCountCacheKey("s1"))
}

func TestUnreadCountUsesCache(t *testing.T) {
	svc, repo, _, _ := newNotificationFixture()
	repo.unread = 7

	count, err := svc.UnreadCount(context.Background(), "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 7, count)

	// Second read is served from the cache even if the table moved on.
	repo.unread = 99
	count, err = svc.UnreadCount(context.Background(), "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 7, count)
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	svc, repo, _, _ := newNotificationFixture()
	repo.notifications = []models.Notification{{ID: "n1", UserID: "s1"}}

	err := svc.MarkRead(context.Background(), "n1", "intruder")
	require.Error(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), "n1", "s1"))
	assert.True(t, repo.stored()[0].Read)
}

func TestDeleteAllClearsInbox(t *testing.T) {
	svc, repo, _, _ := newNotificationFixture()
	repo.notifications = []models.Notification{
		{ID: "n1", UserID: "s1"},
		{ID: "n2", UserID: "s1"},
		{ID: "n3", UserID: "s2"},
	}

	n, err := svc.DeleteAll(context.Background(), "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Len(t, repo.stored(), 1)
}
