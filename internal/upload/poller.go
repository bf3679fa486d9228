package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/isoshare/internal/clock"
	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/logging"
	"github.com/dmitrijs2005/isoshare/internal/models"
	"github.com/dmitrijs2005/isoshare/internal/panapi"
)

// CompletionPoller finalizes an upload and waits for the server's verdict.
//
// The task moves CompleteRequested -> Polling -> {Completed, Failed,
// TimedOut}. A synchronous completion skips polling. Server-side jobs are
// never cancelled on timeout.
type CompletionPoller struct {
	api      CompletionAPI
	journal  Journal
	clock    clock.Clock
	attempts int
	interval time.Duration
	log      logging.Logger
}

func NewCompletionPoller(api CompletionAPI, journal Journal, clk clock.Clock, attempts int, interval time.Duration, log logging.Logger) *CompletionPoller {
	return &CompletionPoller{api: api, journal: journal, clock: clk, attempts: attempts, interval: interval, log: log}
}

// Complete sends the finalize signal for task and polls until the server
// reports a terminal status or the attempts run out. On success task.FileID
// is set and the task is Completed.
func (p *CompletionPoller) Complete(ctx context.Context, task *models.UploadTask) error {
	if err := p.move(ctx, task, models.StatusCompleteRequested, ""); err != nil {
		return err
	}

	res, err := p.api.CompleteUpload(ctx, task.PreuploadID)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrFinalize, task.FileName, err)
	}
	if res.Completed && res.FileID != 0 {
		task.FileID = res.FileID
		p.log.Info(ctx, "upload completed synchronously", "file", task.FileName, "file_id", res.FileID)
		return p.move(ctx, task, models.StatusCompleted, "")
	}

	return p.Poll(ctx, task)
}

// Poll asks for the upload result up to the configured number of times,
// waiting the configured interval between attempts.
func (p *CompletionPoller) Poll(ctx context.Context, task *models.UploadTask) error {
	if err := p.move(ctx, task, models.StatusPolling, ""); err != nil {
		return err
	}

	for attempt := 1; attempt <= p.attempts; attempt++ {
		if attempt > 1 {
			if err := clock.Sleep(ctx, p.clock, p.interval); err != nil {
				return fmt.Errorf("%w: %s: %w", common.ErrFinalize, task.FileName, err)
			}
		}

		res, err := p.api.GetUploadResult(ctx, task.PreuploadID)
		if err != nil {
			return fmt.Errorf("%w: %s: poll %d: %w", common.ErrFinalize, task.FileName, attempt, err)
		}

		switch res.Status {
		case panapi.UploadStatusCompleted:
			if res.FileID == 0 {
				return fmt.Errorf("%w: %s: poll %d reported completion without a file id", common.ErrFinalize, task.FileName, attempt)
			}
			task.FileID = res.FileID
			p.log.Info(ctx, "upload completed", "file", task.FileName, "file_id", res.FileID, "polls", attempt)
			return p.move(ctx, task, models.StatusCompleted, "")
		case panapi.UploadStatusFailed:
			detail := fmt.Sprintf("server reported failure on poll %d", attempt)
			if err := p.move(ctx, task, models.StatusFailed, detail); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s: %s", common.ErrPollFailed, task.FileName, detail)
		default:
			p.log.Debug(ctx, "upload still processing", "file", task.FileName, "status", res.Status, "attempt", attempt)
		}
	}

	detail := fmt.Sprintf("no terminal status after %d polls", p.attempts)
	if err := p.move(ctx, task, models.StatusTimedOut, detail); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s: %s", common.ErrPollTimeout, task.FileName, detail)
}

func (p *CompletionPoller) move(ctx context.Context, task *models.UploadTask, next models.TaskStatus, detail string) error {
	if err := p.journal.Transition(context.WithoutCancel(ctx), task, next, p.clock.Now(), detail); err != nil {
		return fmt.Errorf("journal %s -> %s: %w", task.Status, next, err)
	}
	return nil
}
