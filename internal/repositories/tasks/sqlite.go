package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/isoshare/internal/dbx"
	"github.com/dmitrijs2005/isoshare/internal/models"
)

var _ Repository = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const taskColumns = `id, run_id, directory_id, path, file_name, size_bytes, etag, preupload_id,
	slice_size_bytes, status, file_id, error, updated_at`

func (r *SQLiteRepository) Insert(ctx context.Context, t *models.UploadTask) error {

	query := `INSERT INTO upload_tasks (run_id, directory_id, path, file_name, size_bytes, etag, preupload_id,
			slice_size_bytes, status, file_id, error, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, t.RunID, t.DirectoryID, t.Path, t.FileName, t.SizeBytes, t.ETag,
		t.PreuploadID, t.SliceSizeBytes, string(t.Status), t.FileID, t.Error, t.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert upload task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get upload task id: %w", err)
	}
	t.ID = id

	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, t *models.UploadTask) error {

	query := `UPDATE upload_tasks SET preupload_id=?, status=?, file_id=?, error=?, updated_at=? WHERE id=?`
	result, err := r.db.ExecContext(ctx, query, t.PreuploadID, string(t.Status), t.FileID, t.Error, t.UpdatedAt.UnixMilli(), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update upload task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("upload task %d not found", t.ID)
	}

	return nil
}

func (r *SQLiteRepository) AddEvent(ctx context.Context, e Event) error {

	query := `INSERT INTO upload_task_events (task_id, status, detail, at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, e.TaskID, string(e.Status), e.Detail, e.AtUnix); err != nil {
		return fmt.Errorf("failed to insert task event: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.UploadTask, error) {
	t := &models.UploadTask{}
	var status string
	var updated int64
	err := s.Scan(&t.ID, &t.RunID, &t.DirectoryID, &t.Path, &t.FileName, &t.SizeBytes, &t.ETag, &t.PreuploadID,
		&t.SliceSizeBytes, &status, &t.FileID, &t.Error, &updated)
	if err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	t.UpdatedAt = time.UnixMilli(updated).UTC()
	return t, nil
}

func (r *SQLiteRepository) FindCompleted(ctx context.Context, directoryID int64, fileName, etag string) (*models.UploadTask, error) {

	query := `SELECT ` + taskColumns + ` FROM upload_tasks
		WHERE directory_id=? AND file_name=? AND etag=? AND status=? AND file_id<>0
		ORDER BY id DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, directoryID, fileName, etag, string(models.StatusCompleted))

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error selecting completed task: %w", err)
	}

	return t, nil
}

func (r *SQLiteRepository) ListByRun(ctx context.Context, runID string) ([]*models.UploadTask, error) {

	query := `SELECT ` + taskColumns + ` FROM upload_tasks WHERE run_id=? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("error selecting upload tasks: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadTask

	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) Events(ctx context.Context, taskID int64) ([]Event, error) {

	query := `SELECT task_id, status, detail, at FROM upload_task_events WHERE task_id=? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("error selecting task events: %w", err)
	}
	defer rows.Close()

	var result []Event

	for rows.Next() {
		var e Event
		var status string
		if err := rows.Scan(&e.TaskID, &status, &e.Detail, &e.AtUnix); err != nil {
			return nil, err
		}
		e.Status = models.TaskStatus(status)
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
