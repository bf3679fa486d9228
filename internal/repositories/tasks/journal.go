package tasks

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/isoshare/internal/dbx"
	"github.com/dmitrijs2005/isoshare/internal/models"
)

// Journal writes task rows and their transition log in one transaction.
// It is safe for concurrent use as far as the underlying *sql.DB is.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// Record stores a new task and logs its initial status.
func (j *Journal) Record(ctx context.Context, t *models.UploadTask) error {
	return dbx.WithTx(ctx, j.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.Insert(ctx, t); err != nil {
			return err
		}
		return repo.AddEvent(ctx, Event{TaskID: t.ID, Status: t.Status, AtUnix: t.UpdatedAt.UnixMilli()})
	})
}

// Transition moves t to next and persists both the new state and the log
// entry. Illegal moves are rejected before anything is written.
func (j *Journal) Transition(ctx context.Context, t *models.UploadTask, next models.TaskStatus, at time.Time, detail string) error {
	if err := t.Transition(next, at); err != nil {
		return err
	}
	if next == models.StatusFailed || next == models.StatusTimedOut || next == models.StatusAborted {
		t.Error = detail
	}

	return dbx.WithTx(ctx, j.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)
		if err := repo.Update(ctx, t); err != nil {
			return err
		}
		return repo.AddEvent(ctx, Event{TaskID: t.ID, Status: next, Detail: detail, AtUnix: at.UnixMilli()})
	})
}

// Save persists field changes that are not status transitions, such as the
// preupload id handed out by the server.
func (j *Journal) Save(ctx context.Context, t *models.UploadTask) error {
	return NewSQLiteRepository(j.db).Update(ctx, t)
}

func (j *Journal) FindCompleted(ctx context.Context, directoryID int64, fileName, etag string) (*models.UploadTask, error) {
	return NewSQLiteRepository(j.db).FindCompleted(ctx, directoryID, fileName, etag)
}

func (j *Journal) ListByRun(ctx context.Context, runID string) ([]*models.UploadTask, error) {
	return NewSQLiteRepository(j.db).ListByRun(ctx, runID)
}

func (j *Journal) Events(ctx context.Context, taskID int64) ([]Event, error) {
	return NewSQLiteRepository(j.db).Events(ctx, taskID)
}
