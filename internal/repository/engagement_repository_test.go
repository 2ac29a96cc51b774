package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

func TestFindLikeNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEngagementRepository(db)

	mock.ExpectQuery("SELECT id, content_type, content_id, user_id, created_at FROM likes").
		WithArgs(models.ContentVideo, "v1", "u1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLike(context.Background(), models.ContentVideo, "v1", "u1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLike(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEngagementRepository(db)

	mock.ExpectExec("INSERT INTO likes").WillReturnResult(sqlmock.NewResult(1, 1))

	like := &models.Like{ContentType: models.ContentVideo, ContentID: "v1", UserID: "u1"}
	err := repo.CreateLike(context.Background(), like)
	require.NoError(t, err)
	assert.NotEmpty(t, like.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteLike(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEngagementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM likes WHERE content_type = $1 AND content_id = $2 AND user_id = $3")).
		WithArgs(models.ContentVideo, "v1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.DeleteLike(context.Background(), models.ContentVideo, "v1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertViewFirstViewIncrementsCounter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEngagementRepository(db)

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"id", "watch_time", "completion_pct", "last_position", "inserted"}).
		AddRow("view-1", 120, 40.0, 120, true)
	mock.ExpectQuery("INSERT INTO video_views").WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE videos SET views = views + 1 WHERE id = $1")).
		WithArgs("v1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	view := &models.VideoView{VideoID: "v1", UserID: "u1", WatchTime: 120, CompletionPct: 40, LastPosition: 120}
	created, err := repo.UpsertView(context.Background(), view)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertViewRepeatViewSkipsCounter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEngagementRepository(db)

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"id", "watch_time", "completion_pct", "last_position", "inserted"}).
		AddRow("view-1", 300, 90.0, 280, false)
	mock.ExpectQuery("INSERT INTO video_views").WillReturnRows(rows)
	mock.ExpectCommit()

	view := &models.VideoView{VideoID: "v1", UserID: "u1", WatchTime: 300, CompletionPct: 90, LastPosition: 280, WatchedAt: time.Now()}
	created, err := repo.UpsertView(context.Background(), view)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 300, view.WatchTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}
