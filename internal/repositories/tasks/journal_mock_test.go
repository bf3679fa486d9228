package tasks

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/isoshare/internal/models"
)

func newMockJournal(t *testing.T) (*Journal, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewJournal(db), mock
}

func TestJournal_RecordRollsBackWhenEventInsertFails(t *testing.T) {
	j, mock := newMockJournal(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO upload_tasks")).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO upload_task_events")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	task := &models.UploadTask{RunID: "r", FileName: "a.iso", Status: models.StatusCreated, UpdatedAt: time.Unix(0, 0)}
	err := j.Record(context.Background(), task)
	require.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_TransitionMissingRow(t *testing.T) {
	j, mock := newMockJournal(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE upload_tasks SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	task := &models.UploadTask{ID: 9, Status: models.StatusCreated}
	err := j.Transition(context.Background(), task, models.StatusAborted, time.Unix(10, 0), "cancelled")
	require.ErrorContains(t, err, "upload task 9 not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJournal_BeginFailure(t *testing.T) {
	j, mock := newMockJournal(t)
	mock.ExpectBegin().WillReturnError(errors.New("locked"))

	task := &models.UploadTask{Status: models.StatusCreated}
	require.ErrorContains(t, j.Record(context.Background(), task), "locked")
	require.NoError(t, mock.ExpectationsWereMet())
}
