package upload

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/isoshare/internal/models"
	"github.com/dmitrijs2005/isoshare/internal/panapi"
)

// DirectoryAPI is the part of the remote API the resolver needs.
type DirectoryAPI interface {
	FindDirectory(ctx context.Context, parentID int64, name string) (int64, bool, error)
	CreateDirectory(ctx context.Context, parentID int64, name string) (int64, error)
}

// SliceAPI is the part of the remote API the slice uploader needs.
type SliceAPI interface {
	GetSliceUploadURL(ctx context.Context, preuploadID string, sliceNo int) (string, error)
	PutSlice(ctx context.Context, uploadURL string, src io.ReaderAt, s models.Slice) error
}

// CompletionAPI is the part of the remote API the poller needs.
type CompletionAPI interface {
	CompleteUpload(ctx context.Context, preuploadID string) (panapi.CompleteResult, error)
	GetUploadResult(ctx context.Context, preuploadID string) (panapi.UploadResult, error)
}

// ShareAPI is the part of the remote API the share issuer needs.
type ShareAPI interface {
	CreateShare(ctx context.Context, req models.ShareRequest) (models.ShareResult, error)
}

// API is everything a pipeline run calls. *panapi.Client satisfies it.
type API interface {
	DirectoryAPI
	SliceAPI
	CompletionAPI
	ShareAPI
	ExchangeToken(ctx context.Context) error
	CreateUploadTask(ctx context.Context, req panapi.CreateUploadRequest) (panapi.CreateUploadResult, error)
}

// Journal persists tasks and their transitions. *tasks.Journal satisfies it.
type Journal interface {
	Record(ctx context.Context, t *models.UploadTask) error
	Transition(ctx context.Context, t *models.UploadTask, next models.TaskStatus, at time.Time, detail string) error
	Save(ctx context.Context, t *models.UploadTask) error
	FindCompleted(ctx context.Context, directoryID int64, fileName, etag string) (*models.UploadTask, error)
	ListByRun(ctx context.Context, runID string) ([]*models.UploadTask, error)
}

var _ API = (*panapi.Client)(nil)
