package content

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresGetCourse(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, workspace_id, subject_id, title, description, published, created_at, updated_at\s+FROM courses WHERE workspace_id = \$1 AND id = \$2`).
			WithArgs("ws-1", "c-1").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "workspace_id", "subject_id", "title", "description", "published", "created_at", "updated_at",
			}).AddRow("c-1", "ws-1", "s-1", "Algebra I", "intro", true, now, now))

		c, err := repo.GetCourse(context.Background(), "ws-1", "c-1")
		require.NoError(t, err)
		assert.Equal(t, "Algebra I", c.Title)
		assert.True(t, c.Published)
	})

	t.Run("absent row maps to ErrNotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, workspace_id, subject_id, title, description, published, created_at, updated_at`).
			WithArgs("ws-1", "c-missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetCourse(context.Background(), "ws-1", "c-missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteCourseRequiresRow(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec(`DELETE FROM courses WHERE workspace_id = \$1 AND id = \$2`).
		WithArgs("ws-1", "c-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteCourse(context.Background(), "ws-1", "c-1"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateEnrollmentConflict(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("ws-1", "c-1", "acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err = repo.CreateEnrollment(context.Background(), &Enrollment{
		WorkspaceID: "ws-1", CourseID: "c-1", AccountID: "acct-1",
	})
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
