package models

import (
	"fmt"
	"time"
)

// TaskStatus is a state of the per-file upload state machine:
//
//	Created -> SlicesUploading -> CompleteRequested -> Polling -> {Completed, Failed, TimedOut}
//
// Aborted marks a task that stopped on a local or transport error before
// the server reached a verdict.
type TaskStatus string

const (
	StatusCreated           TaskStatus = "created"
	StatusSlicesUploading   TaskStatus = "slices_uploading"
	StatusCompleteRequested TaskStatus = "complete_requested"
	StatusPolling           TaskStatus = "polling"
	StatusCompleted         TaskStatus = "completed"
	StatusFailed            TaskStatus = "failed"
	StatusTimedOut          TaskStatus = "timed_out"
	StatusAborted           TaskStatus = "aborted"
)

// Terminal reports whether no further transition is allowed.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut, StatusAborted:
		return true
	}
	return false
}

var transitions = map[TaskStatus][]TaskStatus{
	StatusCreated:           {StatusSlicesUploading, StatusCompleted, StatusAborted},
	StatusSlicesUploading:   {StatusCompleteRequested, StatusAborted},
	StatusCompleteRequested: {StatusPolling, StatusCompleted, StatusAborted},
	StatusPolling:           {StatusCompleted, StatusFailed, StatusTimedOut, StatusAborted},
}

// CanTransition reports whether from -> to is a legal move. Created may jump
// straight to Completed when the server already holds the content, and
// CompleteRequested may do so when finalization is synchronous.
func CanTransition(from, to TaskStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UploadTask tracks one local artifact from creation to a terminal state.
type UploadTask struct {
	ID             int64
	RunID          string
	DirectoryID    int64
	Path           string
	FileName       string
	SizeBytes      int64
	ETag           string
	PreuploadID    string
	SliceSizeBytes int64
	Status         TaskStatus
	FileID         int64
	Error          string
	UpdatedAt      time.Time
}

// SliceCount is ceil(SizeBytes / SliceSizeBytes).
func (t *UploadTask) SliceCount() int {
	return SliceCount(t.SizeBytes, t.SliceSizeBytes)
}

// Slices returns the slice plan for the task.
func (t *UploadTask) Slices() []Slice {
	return PlanSlices(t.SizeBytes, t.SliceSizeBytes)
}

// Transition moves the task to next, refusing illegal moves.
func (t *UploadTask) Transition(next TaskStatus, at time.Time) error {
	if !CanTransition(t.Status, next) {
		return fmt.Errorf("illegal upload task transition %s -> %s for %s", t.Status, next, t.FileName)
	}
	t.Status = next
	t.UpdatedAt = at
	return nil
}
