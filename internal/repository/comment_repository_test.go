package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecturehub/lecturehub-api/internal/models"
)

func TestCommentCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	mock.ExpectExec("INSERT INTO comments").WillReturnResult(sqlmock.NewResult(1, 1))

	comment := &models.Comment{ContentType: models.ContentVideo, ContentID: "v1", UserID: "u1", Body: "great lecture"}
	err := repo.Create(context.Background(), comment)
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.NotNil(t, comment.LikedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentDeleteTreeCascades(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM comments WHERE id = $1 OR parent_id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteTree(context.Background(), "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentToggleLike(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	rows := sqlmock.NewRows([]string{"liked_by"}).AddRow(pq.StringArray{"u1", "u2"})
	mock.ExpectQuery("UPDATE comments SET").
		WillReturnRows(rows)

	likedBy, err := repo.ToggleLike(context.Background(), "c1", "u2")
	require.NoError(t, err)
	assert.Contains(t, []string(likedBy), "u2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentListTopLevel(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	listRows := sqlmock.NewRows([]string{"id", "content_type", "content_id", "user_id", "body", "parent_id", "liked_by", "created_at", "updated_at"})
	mock.ExpectQuery("SELECT id, content_type, .+ FROM comments WHERE content_type = \\$1 AND content_id = \\$2 AND parent_id IS NULL").
		WithArgs(models.ContentVideo, "v1").
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM comments")).
		WithArgs(models.ContentVideo, "v1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	comments, total, err := repo.List(context.Background(), models.CommentFilter{ContentType: models.ContentVideo, ContentID: "v1", TopLevel: true})
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
