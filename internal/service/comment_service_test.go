package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lecturehub/lecturehub-api/internal/models"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type mockCommentRepo struct {
	comments map[string]*models.Comment
	deleted  []string
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{comments: make(map[string]*models.Comment)}
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (m *mockCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = fmt.Sprintf("c%d", len(m.comments)+1)
	}
	m.comments[comment.ID] = comment
	return nil
}

func (m *mockCommentRepo) DeleteTree(ctx context.Context, id string) (int64, error) {
	var n int64
	for cid, c := range m.comments {
		if cid == id || (c.ParentID != nil && *c.ParentID == id) {
			delete(m.comments, cid)
			m.deleted = append(m.deleted, cid)
			n++
		}
	}
	return n, nil
}

func (m *mockCommentRepo) ToggleLike(ctx context.Context, id, userID string) ([]string, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	for i, liked := range c.LikedBy {
		if liked == userID {
			c.LikedBy = append(c.LikedBy[:i], c.LikedBy[i+1:]...)
			return []string(c.LikedBy), nil
		}
	}
	c.LikedBy = append(c.LikedBy, userID)
	return []string(c.LikedBy), nil
}

func (m *mockCommentRepo) List(ctx context.Context, filter models.CommentFilter) ([]models.Comment, int, error) {
	var out []models.Comment
	for _, c := range m.comments {
		if c.ContentType != filter.ContentType || c.ContentID != filter.ContentID {
			continue
		}
		if filter.TopLevel && c.ParentID != nil {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func newCommentFixture() (*CommentService, *mockCommentRepo, *mockNotifier) {
	repo := newMockCommentRepo()
	videos := &mockVideoStore{videos: map[string]*models.Video{"v1": publishedVideo("v1", "t1")}}
	notices := &mockNoticeStore{notices: map[string]*models.Notice{}}
	playlists := &mockPlaylistStore{playlists: map[string]*models.Playlist{}}
	notifier := &mockNotifier{}
	svc := NewCommentService(repo, videos, notices, playlists, NewAccessService(), notifier, validator.New(), zap.NewNop())
	return svc, repo, notifier
}

func TestAddCommentNotifiesOwner(t *testing.T) {
	svc, _, notifier := newCommentFixture()
	student := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd", FullName: "Student One"}

	comment, err := svc.Add(context.Background(), student, models.ContentVideo, "v1", AddCommentRequest{Body: "nice lecture"})
	require.NoError(t, err)
	assert.Nil(t, comment.ParentID)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "t1", notifier.sent[0].UserID)
	assert.Equal(t, models.NotificationCommentAdded, notifier.sent[0].Type)
}

func TestAddReplyAnchorsToTopLevelAncestor(t *testing.T) {
	svc, repo, notifier := newCommentFixture()
	author := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd", FullName: "Student One"}
	replier := &models.User{ID: "s2", Role: models.RoleStudent, Branch: "CSE", Year: "2nd", FullName: "Student Two"}

	top, err := svc.Add(context.Background(), author, models.ContentVideo, "v1", AddCommentRequest{Body: "top level"})
	require.NoError(t, err)

	reply, err := svc.Add(context.Background(), replier, models.ContentVideo, "v1", AddCommentRequest{Body: "first reply", ParentID: top.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, top.ID, *reply.ParentID)

	// Replying to a reply still anchors to the top-level comment.
	nested, err := svc.Add(context.Background(), author, models.ContentVideo, "v1", AddCommentRequest{Body: "nested reply", ParentID: reply.ID})
	require.NoError(t, err)
	require.NotNil(t, nested.ParentID)
	assert.Equal(t, top.ID, *nested.ParentID)

	// The reply notified the replied-to author, not the content owner.
	last := notifier.sent[len(notifier.sent)-1]
	assert.Equal(t, models.NotificationCommentReply, last.Type)
	assert.Equal(t, replier.ID, last.UserID)

	assert.Len(t, repo.comments, 3)
}

func TestAddReplyToDifferentContentRejected(t *testing.T) {
	svc, repo, _ := newCommentFixture()
	student := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}

	repo.comments["other"] = &models.Comment{ID: "other", ContentType: models.ContentVideo, ContentID: "v2", UserID: "s2"}

	_, err := svc.Add(context.Background(), student, models.ContentVideo, "v1", AddCommentRequest{Body: "reply", ParentID: "other"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSelfCommentSkipsNotification(t *testing.T) {
	svc, _, notifier := newCommentFixture()
	owner := &models.User{ID: "t1", Role: models.RoleTeacher, FullName: "Teacher One"}

	_, err := svc.Add(context.Background(), owner, models.ContentVideo, "v1", AddCommentRequest{Body: "my own video"})
	require.NoError(t, err)
	assert.Empty(t, notifier.sent)
}

func TestDeleteCommentCascadesToReplies(t *testing.T) {
	svc, repo, _ := newCommentFixture()
	author := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}
	replier := &models.User{ID: "s2", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}

	top, err := svc.Add(context.Background(), author, models.ContentVideo, "v1", AddCommentRequest{Body: "top"})
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), replier, models.ContentVideo, "v1", AddCommentRequest{Body: "reply", ParentID: top.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), author, top.ID))
	assert.Empty(t, repo.comments)
}

func TestDeleteCommentAuthorOrAdminOnly(t *testing.T) {
	svc, _, _ := newCommentFixture()
	author := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}
	stranger := &models.User{ID: "s2", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}
	admin := &models.User{ID: "a1", Role: models.RoleAdmin}

	comment, err := svc.Add(context.Background(), author, models.ContentVideo, "v1", AddCommentRequest{Body: "hello"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), stranger, comment.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), admin, comment.ID))
}

func TestToggleCommentLike(t *testing.T) {
	svc, _, _ := newCommentFixture()
	author := &models.User{ID: "s1", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}
	liker := &models.User{ID: "s2", Role: models.RoleStudent, Branch: "CSE", Year: "2nd"}

	comment, err := svc.Add(context.Background(), author, models.ContentVideo, "v1", AddCommentRequest{Body: "hello"})
	require.NoError(t, err)

	res, err := svc.ToggleLike(context.Background(), liker, comment.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.EqualValues(t, 1, res.LikesCount)

	res, err = svc.ToggleLike(context.Background(), liker, comment.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.EqualValues(t, 0, res.LikesCount)
}
