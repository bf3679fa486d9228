package tasks

import (
	"context"

	"github.com/dmitrijs2005/isoshare/internal/models"
)

// Event is one recorded status change of a task.
type Event struct {
	TaskID int64
	Status models.TaskStatus
	Detail string
	AtUnix int64
}

// Repository describes the row operations on upload tasks.
type Repository interface {
	// Insert stores a new task and sets its ID.
	Insert(ctx context.Context, t *models.UploadTask) error

	// Update persists the mutable fields of t (status, preupload id, file id,
	// error, timestamp).
	Update(ctx context.Context, t *models.UploadTask) error

	// AddEvent appends to the task's transition log.
	AddEvent(ctx context.Context, e Event) error

	// FindCompleted returns the most recent completed task with the same
	// identity, or nil if there is none.
	FindCompleted(ctx context.Context, directoryID int64, fileName, etag string) (*models.UploadTask, error)

	// ListByRun returns the tasks of one run in creation order.
	ListByRun(ctx context.Context, runID string) ([]*models.UploadTask, error)

	// Events returns the transition log of a task in order.
	Events(ctx context.Context, taskID int64) ([]Event, error)
}
