package upload

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/logging"
	"github.com/dmitrijs2005/isoshare/internal/models"
)

// SliceUploader sends a task's slices one at a time, in order. The first
// failing slice stops the loop; later slices are never requested.
type SliceUploader struct {
	api SliceAPI
	log logging.Logger
}

func NewSliceUploader(api SliceAPI, log logging.Logger) *SliceUploader {
	return &SliceUploader{api: api, log: log}
}

// Upload transmits every slice of task from task.Path.
func (u *SliceUploader) Upload(ctx context.Context, task *models.UploadTask) error {
	f, err := os.Open(task.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", common.ErrChecksumIO, task.Path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", common.ErrChecksumIO, task.Path, err)
	}
	if fi.Size() != task.SizeBytes {
		return fmt.Errorf("%w: %s changed size from %d to %d since it was hashed", common.ErrChecksumIO, task.Path, task.SizeBytes, fi.Size())
	}

	slices := task.Slices()
	for _, s := range slices {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s before %s: %w", common.ErrSliceUpload, task.FileName, s, err)
		}

		url, err := u.api.GetSliceUploadURL(ctx, task.PreuploadID, s.Number)
		if err != nil {
			return fmt.Errorf("%w: %s %s: get url: %w", common.ErrSliceUpload, task.FileName, s, err)
		}

		if err := u.api.PutSlice(ctx, url, f, s); err != nil {
			return fmt.Errorf("%w: %s %s: %w", common.ErrSliceUpload, task.FileName, s, err)
		}

		u.log.Debug(ctx, "slice uploaded", "file", task.FileName, "slice", s.Number, "of", len(slices), "bytes", s.Length)
	}
	return nil
}
