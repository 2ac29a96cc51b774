package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

func TestNotificationCreateMany(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(2, 2))

	ns := []models.Notification{
		{UserID: "s1", Type: models.NotificationNoticePosted, Title: "New notice", Message: "Exam schedule"},
		{UserID: "s2", Type: models.NotificationNoticePosted, Title: "New notice", Message: "Exam schedule"},
	}
	err := repo.CreateMany(context.Background(), ns)
	require.NoError(t, err)
	assert.NotEmpty(t, ns[0].ID)
	assert.NotEmpty(t, ns[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationCreateManyEmpty(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	require.NoError(t, repo.CreateMany(context.Background(), nil))
}

func TestNotificationMarkReadScopedToRecipient(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2")).
		WithArgs("n1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkRead(context.Background(), "n1", "intruder")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationCountUnread(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountUnread(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationDeleteAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
