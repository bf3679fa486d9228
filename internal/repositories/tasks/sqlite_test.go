package tasks

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/isoshare/internal/dbx"
	"github.com/dmitrijs2005/isoshare/internal/migrations"
	"github.com/dmitrijs2005/isoshare/internal/models"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := dbx.OpenSQLite(context.Background(), dbx.MemoryDSN, migrations.Migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTask(run, name, etag string) *models.UploadTask {
	return &models.UploadTask{
		RunID:          run,
		DirectoryID:    77,
		Path:           "/tmp/" + name,
		FileName:       name,
		SizeBytes:      12 << 20,
		ETag:           etag,
		SliceSizeBytes: 5 << 20,
		Status:         models.StatusCreated,
		UpdatedAt:      t0,
	}
}

func TestInsertAndListByRun(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	a := newTask("run-1", "a.iso", "e1")
	b := newTask("run-1", "b.iso", "e2")
	other := newTask("run-2", "c.iso", "e3")
	require.NoError(t, r.Insert(ctx, a))
	require.NoError(t, r.Insert(ctx, b))
	require.NoError(t, r.Insert(ctx, other))
	assert.NotZero(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)

	got, err := r.ListByRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]*models.UploadTask{a, b}, got))

	none, err := r.ListByRun(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdate_SuccessAndNotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	task := newTask("run", "a.iso", "e")
	require.NoError(t, r.Insert(ctx, task))

	task.PreuploadID = "pre-1"
	task.Status = models.StatusSlicesUploading
	task.UpdatedAt = t0.Add(time.Minute)
	require.NoError(t, r.Update(ctx, task))

	got, err := r.ListByRun(ctx, "run")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pre-1", got[0].PreuploadID)
	assert.Equal(t, models.StatusSlicesUploading, got[0].Status)
	assert.Equal(t, t0.Add(time.Minute), got[0].UpdatedAt)

	missing := newTask("run", "x.iso", "e")
	missing.ID = 9999
	require.Error(t, r.Update(ctx, missing))
}

func TestFindCompleted(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	pending := newTask("run-1", "a.iso", "etag-a")
	require.NoError(t, r.Insert(ctx, pending))

	got, err := r.FindCompleted(ctx, 77, "a.iso", "etag-a")
	require.NoError(t, err)
	assert.Nil(t, got, "only completed tasks count")

	done := newTask("run-1", "a.iso", "etag-a")
	done.Status = models.StatusCompleted
	done.FileID = 555
	require.NoError(t, r.Insert(ctx, done))

	got, err = r.FindCompleted(ctx, 77, "a.iso", "etag-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(555), got.FileID)

	for _, q := range []struct {
		dir        int64
		name, etag string
	}{
		{78, "a.iso", "etag-a"},
		{77, "b.iso", "etag-a"},
		{77, "a.iso", "etag-b"},
	} {
		got, err := r.FindCompleted(ctx, q.dir, q.name, q.etag)
		require.NoError(t, err)
		assert.Nil(t, got, "%+v", q)
	}
}

func TestJournal_RecordsTransitionsInOrder(t *testing.T) {
	db := setupDB(t)
	j := NewJournal(db)
	ctx := context.Background()

	task := newTask("run", "a.iso", "e")
	require.NoError(t, j.Record(ctx, task))

	steps := []models.TaskStatus{
		models.StatusSlicesUploading,
		models.StatusCompleteRequested,
		models.StatusPolling,
		models.StatusTimedOut,
	}
	for i, s := range steps {
		detail := ""
		if s == models.StatusTimedOut {
			detail = "no verdict after 30 polls"
		}
		require.NoError(t, j.Transition(ctx, task, s, t0.Add(time.Duration(i+1)*time.Second), detail))
	}

	events, err := j.Events(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, models.StatusCreated, events[0].Status)
	for i, s := range steps {
		assert.Equal(t, s, events[i+1].Status)
	}
	assert.Equal(t, "no verdict after 30 polls", events[4].Detail)

	got, err := j.ListByRun(ctx, "run")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusTimedOut, got[0].Status)
	assert.Equal(t, "no verdict after 30 polls", got[0].Error)
}

func TestJournal_RejectsIllegalTransitionWithoutWriting(t *testing.T) {
	db := setupDB(t)
	j := NewJournal(db)
	ctx := context.Background()

	task := newTask("run", "a.iso", "e")
	require.NoError(t, j.Record(ctx, task))

	require.Error(t, j.Transition(ctx, task, models.StatusPolling, t0, ""))
	assert.Equal(t, models.StatusCreated, task.Status)

	events, err := j.Events(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestJournal_SaveAndFindCompleted(t *testing.T) {
	db := setupDB(t)
	j := NewJournal(db)
	ctx := context.Background()

	task := newTask("run", "a.iso", "e")
	require.NoError(t, j.Record(ctx, task))
	task.PreuploadID = "pre-9"
	require.NoError(t, j.Save(ctx, task))

	task.FileID = 42
	require.NoError(t, j.Transition(ctx, task, models.StatusCompleted, t0, ""))

	got, err := j.FindCompleted(ctx, 77, "a.iso", "e")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "pre-9", got.PreuploadID)
	assert.Equal(t, int64(42), got.FileID)
}
