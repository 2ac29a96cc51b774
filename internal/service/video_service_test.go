package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type mockVideoRepo struct {
	videos    map[string]*models.Video
	createErr error
	granted   []string
	revoked   []string
}

func newMockVideoRepo(videos ...*models.Video) *mockVideoRepo {
	m := &mockVideoRepo{videos: make(map[string]*models.Video)}
	for _, v := range videos {
		m.videos[v.ID] = v
	}
	return m
}

func (m *mockVideoRepo) GetByID(ctx context.Context, id string) (*models.Video, error) {
	v, ok := m.videos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return v, nil
}

func (m *mockVideoRepo) Create(ctx context.Context, video *models.Video) error {
	if m.createErr != nil {
		return m.createErr
	}
	if video.ID == "" {
		video.ID = fmt.Sprintf("v%d", len(m.videos)+1)
	}
	m.videos[video.ID] = video
	return nil
}

func (m *mockVideoRepo) Update(ctx context.Context, video *models.Video) error {
	m.videos[video.ID] = video
	return nil
}

func (m *mockVideoRepo) Delete(ctx context.Context, id string) error {
	delete(m.videos, id)
	return nil
}

func (m *mockVideoRepo) GrantAccess(ctx context.Context, id, userID string) error {
	m.granted = append(m.granted, userID)
	return nil
}

func (m *mockVideoRepo) RevokeAccess(ctx context.Context, id, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockVideoRepo) List(ctx context.Context, filter models.ContentFilter) ([]models.Video, int, error) {
	var out []models.Video
	for _, v := range m.videos {
		if filter.OwnerID != "" && v.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, *v)
	}
	return out, len(out), nil
}

type mockMediaStore struct {
	saved     map[string]string
	destroyed []string
	saveErr   error
}

func newMockMediaStore() *mockMediaStore {
	return &mockMediaStore{saved: make(map[string]string)}
}

func (m *mockMediaStore) NewKey(kind, originalName string) string {
	return kind + "/" + originalName
}

func (m *mockMediaStore) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.saved[key] = string(data)
	return key, nil
}

func (m *mockMediaStore) Destroy(key string) error {
	m.destroyed = append(m.destroyed, key)
	delete(m.saved, key)
	return nil
}

func (m *mockMediaStore) URL(key string) string {
	return "https://media.example.com/" + key
}

type mockUserLookup struct {
	users map[string]*models.User
}

func (m *mockUserLookup) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type broadcastCall struct {
	Branch string
	Year   string
	Type   models.NotificationType
}

type mockBroadcaster struct {
	calls []broadcastCall
}

func (m *mockBroadcaster) BroadcastToCohort(ctx context.Context, branch, year string, notifType models.NotificationType, title, message string, payload models.Payload) {
	m.calls = append(m.calls, broadcastCall{Branch: branch, Year: year, Type: notifType})
}

func newVideoFixture(videos ...*models.Video) (*VideoService, *mockVideoRepo, *mockMediaStore, *mockBroadcaster) {
	repo := newMockVideoRepo(videos...)
	media := newMockMediaStore()
	users := &mockUserLookup{users: map[string]*models.User{
		"s1": {ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"},
	}}
	broadcaster := &mockBroadcaster{}
	svc := NewVideoService(repo, users, media, NewAccessService(), broadcaster, nil, validator.New(), zap.NewNop(), VideoConfig{
		UploadTimeout:    time.Minute,
		MaxFileSizeBytes: 1024,
	})
	return svc, repo, media, broadcaster
}

func TestUploadVideoStoresObjectAndRecord(t *testing.T) {
	svc, repo, media, _ := newVideoFixture()
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher, FullName: "Teacher One"}

	video, err := svc.Upload(context.Background(), teacher, UploadVideoRequest{
		Title:    "Lecture 1",
		Branch:   "CSE",
		Year:     "2nd",
		FileName: "lecture1.mp4",
		Size:     512,
		File:     strings.NewReader("video-bytes"),
	})
	require.NoError(t, err)
	assert.False(t, video.Published)
	assert.Equal(t, "t1", video.OwnerID)
	assert.Contains(t, media.saved, video.ObjectKey)
	assert.Contains(t, repo.videos, video.ID)
	assert.Equal(t, "https://media.example.com/"+video.ObjectKey, video.URL)
}

func TestUploadVideoCleansUpWhenInsertFails(t *testing.T) {
	svc, repo, media, _ := newVideoFixture()
	repo.createErr = errors.New("insert failed")
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher}

	_, err := svc.Upload(context.Background(), teacher, UploadVideoRequest{
		Title:    "Lecture 1",
		Branch:   "CSE",
		Year:     "2nd",
		FileName: "lecture1.mp4",
		Size:     512,
		File:     strings.NewReader("video-bytes"),
	})
	require.Error(t, err)
	assert.Empty(t, media.saved)
	assert.Len(t, media.destroyed, 1)
}

func TestUploadVideoStudentForbidden(t *testing.T) {
	svc, _, _, _ := newVideoFixture()
	student := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}

	_, err := svc.Upload(context.Background(), student, UploadVideoRequest{
		Title:    "Lecture 1",
		Branch:   "CSE",
		Year:     "2nd",
		FileName: "lecture1.mp4",
		File:     strings.NewReader("video-bytes"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUploadVideoSizeLimit(t *testing.T) {
	svc, _, _, _ := newVideoFixture()
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher}

	_, err := svc.Upload(context.Background(), teacher, UploadVideoRequest{
		Title:    "Lecture 1",
		Branch:   "CSE",
		Year:     "2nd",
		FileName: "lecture1.mp4",
		Size:     4096,
		File:     strings.NewReader("video-bytes"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPublishVideoBroadcastsToCohort(t *testing.T) {
	video := &models.Video{ID: "v1", OwnerID: "t1", Title: "Lecture 1", Branch: "CSE", Year: "2nd"}
	svc, _, _, broadcaster := newVideoFixture(video)
	owner := &models.User{ID: "t1", Role: models.RoleTeacher, FullName: "Teacher One"}

	published, err := svc.Publish(context.Background(), owner, "v1")
	require.NoError(t, err)
	assert.True(t, published.Published)
	require.Len(t, broadcaster.calls, 1)
	assert.Equal(t, broadcastCall{Branch: "CSE", Year: "2nd", Type: models.NotificationVideoPublished}, broadcaster.calls[0])

	// Publishing an already published video does not broadcast again.
	_, err = svc.Publish(context.Background(), owner, "v1")
	require.NoError(t, err)
	assert.Len(t, broadcaster.calls, 1)
}

func TestPublishVideoNonOwnerForbidden(t *testing.T) {
	video := &models.Video{ID: "v1", OwnerID: "t1", Title: "Lecture 1", Branch: "CSE", Year: "2nd"}
	svc, _, _, _ := newVideoFixture(video)
	other := &models.User{ID: "t2", Role: models.RoleTeacher}

	_, err := svc.Publish(context.Background(), other, "v1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGetVideoStudentVisibility(t *testing.T) {
	hidden := &models.Video{ID: "v1", OwnerID: "t1", Title: "Draft", Branch: "CSE", Year: "2nd", Published: false}
	svc, _, _, _ := newVideoFixture(hidden)
	student := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}

	_, err := svc.Get(context.Background(), student, "v1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGrantAccessValidatesTarget(t *testing.T) {
	video := &models.Video{ID: "v1", OwnerID: "t1", Title: "Lecture 1", Branch: "CSE", Year: "2nd", Published: true}
	svc, repo, _, _ := newVideoFixture(video)
	owner := &models.User{ID: "t1", Role: models.RoleTeacher}

	require.NoError(t, svc.GrantAccess(context.Background(), owner, "v1", "s1"))
	assert.Equal(t, []string{"s1"}, repo.granted)

	err := svc.GrantAccess(context.Background(), owner, "v1", "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDeleteVideoRemovesMedia(t *testing.T) {
	video := &models.Video{ID: "v1", OwnerID: "t1", ObjectKey: "videos/lecture1.mp4", Branch: "CSE", Year: "2nd"}
	svc, repo, media, _ := newVideoFixture(video)
	owner := &models.User{ID: "t1", Role: models.RoleTeacher}

	require.NoError(t, svc.Delete(context.Background(), owner, "v1"))
	assert.NotContains(t, repo.videos, "v1")
	assert.Equal(t, []string{"videos/lecture1.mp4"}, media.destroyed)
}

func TestListVideosTeacherDefaultsToOwn(t *testing.T) {
	mine := &models.Video{ID: "v1", OwnerID: "t1", Branch: "CSE", Year: "2nd", Published: true}
	theirs := &models.Video{ID: "v2", OwnerID: "t2", Branch: "CSE", Year: "2nd", Published: true}
	svc, _, _, _ := newVideoFixture(mine, theirs)
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher}

	videos, pagination, err := svc.List(context.Background(), teacher, models.ContentFilter{})
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "v1", videos[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)
}
