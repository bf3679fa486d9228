package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/isoshare/internal/clock"
	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/config"
	"github.com/dmitrijs2005/isoshare/internal/filex"
	"github.com/dmitrijs2005/isoshare/internal/logging"
	"github.com/dmitrijs2005/isoshare/internal/models"
	"github.com/dmitrijs2005/isoshare/internal/panapi"
)

// Report describes what a run did. Tasks come from the journal.
type Report struct {
	RunID     string
	Directory models.RemoteDirectory
	FileIDs   []int64
	Share     *models.ShareResult
	Tasks     []*models.UploadTask
}

// Pipeline uploads a batch of artifacts into one directory and shares them.
type Pipeline struct {
	cfg     *config.Config
	api     API
	journal Journal
	clock   clock.Clock
	log     logging.Logger

	policy   filex.Policy
	resolver *DirectoryResolver
	slices   *SliceUploader
	poller   *CompletionPoller
	sharer   *ShareIssuer
}

func NewPipeline(cfg *config.Config, api API, journal Journal, clk clock.Clock, log logging.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		api:      api,
		journal:  journal,
		clock:    clk,
		log:      log,
		policy:   filex.Policy{MaxSize: cfg.MaxFileSize, MaxNameLength: cfg.MaxNameLength},
		resolver: NewDirectoryResolver(api, cfg.ParentDirectoryID, log),
		slices:   NewSliceUploader(api, log),
		poller:   NewCompletionPoller(api, journal, clk, cfg.PollAttempts, cfg.PollInterval, log),
		sharer: NewShareIssuer(api, ShareOptions{
			ExpireDays:   cfg.ShareExpireDays,
			Password:     cfg.SharePassword,
			TrafficLimit: cfg.ShareTrafficLimit,
			BaseURL:      cfg.ShareBaseURL,
		}, log),
	}
}

// Validate applies the local name and size policy to every artifact and
// returns all violations together.
func (p *Pipeline) Validate(artifacts []filex.Artifact) error {
	var err error
	for _, a := range artifacts {
		err = multierr.Append(err, p.policy.Validate(a))
	}
	return err
}

// Run uploads artifacts into directory dirName and shares the result.
//
// Nothing touches the network until every artifact passes validation, and
// an empty batch is a successful no-op. Under the abort policy the first
// failed file ends the run without a share. Under the isolate policy the
// remaining files still run, the successes are shared and the failures are
// returned together with the report.
func (p *Pipeline) Run(ctx context.Context, runID, dirName string, artifacts []filex.Artifact) (*Report, error) {
	report := &Report{RunID: runID}
	log := p.log.With("run_id", runID)

	if err := p.Validate(artifacts); err != nil {
		return report, err
	}
	if len(artifacts) == 0 {
		log.Info(ctx, "no artifacts found, nothing to do")
		return report, nil
	}

	if err := p.api.ExchangeToken(ctx); err != nil {
		return report, err
	}

	dir, err := p.resolver.Resolve(ctx, dirName)
	if err != nil {
		return report, err
	}
	report.Directory = dir

	fileIDs, runErr := p.uploadAll(ctx, log, runID, dir, artifacts)
	report.FileIDs = fileIDs
	defer p.fillTasks(ctx, report)

	if runErr != nil && p.cfg.FailurePolicy != config.PolicyIsolate {
		return report, runErr
	}
	if len(fileIDs) == 0 {
		return report, runErr
	}

	share, err := p.sharer.Issue(ctx, dir.Name, fileIDs)
	if err != nil {
		return report, multierr.Append(runErr, err)
	}
	report.Share = &share

	if runErr != nil {
		log.Warn(ctx, "shared partial batch", "shared", len(fileIDs), "failed", len(multierr.Errors(runErr)))
	}
	return report, runErr
}

func (p *Pipeline) fillTasks(ctx context.Context, report *Report) {
	tasks, err := p.journal.ListByRun(context.WithoutCancel(ctx), report.RunID)
	if err != nil {
		p.log.Warn(ctx, "could not read journal", "error", err)
		return
	}
	report.Tasks = tasks
}

// uploadAll runs every artifact and returns the file ids in completion
// order. Files run one at a time unless concurrency is raised; slices of a
// file are always sequential.
func (p *Pipeline) uploadAll(ctx context.Context, log logging.Logger, runID string, dir models.RemoteDirectory, artifacts []filex.Artifact) ([]int64, error) {
	var (
		mu      sync.Mutex
		fileIDs []int64
		errs    error
	)
	isolate := p.cfg.FailurePolicy == config.PolicyIsolate

	collect := func(id int64, err error) error {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = multierr.Append(errs, err)
			if isolate {
				return nil
			}
			return err
		}
		fileIDs = append(fileIDs, id)
		return nil
	}

	if p.cfg.Concurrency <= 1 {
		for _, a := range artifacts {
			if err := collect(p.uploadOne(ctx, log, runID, dir, a)); err != nil {
				break
			}
		}
		return fileIDs, errs
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, a := range artifacts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return collect(p.uploadOne(gctx, log, runID, dir, a))
		})
	}
	_ = g.Wait()

	return fileIDs, errs
}

// uploadOne takes one artifact to a terminal state and returns its file id.
func (p *Pipeline) uploadOne(ctx context.Context, log logging.Logger, runID string, dir models.RemoteDirectory, a filex.Artifact) (int64, error) {
	log = log.With("file", a.Name)

	digest, err := filex.Checksum(a.Path, p.cfg.ChecksumBlockSize)
	if err != nil {
		return 0, err
	}
	if digest.Size != a.Size {
		return 0, fmt.Errorf("%w: %s changed size from %d to %d", common.ErrChecksumIO, a.Name, a.Size, digest.Size)
	}

	task := &models.UploadTask{
		RunID:          runID,
		DirectoryID:    dir.ID,
		Path:           a.Path,
		FileName:       a.Name,
		SizeBytes:      a.Size,
		ETag:           digest.Hex,
		SliceSizeBytes: p.cfg.SliceSize,
		Status:         models.StatusCreated,
		UpdatedAt:      p.clock.Now(),
	}
	jctx := context.WithoutCancel(ctx)
	if err := p.journal.Record(jctx, task); err != nil {
		return 0, fmt.Errorf("journal %s: %w", a.Name, err)
	}

	prev, err := p.journal.FindCompleted(jctx, dir.ID, a.Name, digest.Hex)
	if err != nil {
		return 0, p.abort(ctx, log, task, err)
	}
	if prev != nil {
		task.FileID = prev.FileID
		log.Info(ctx, "already uploaded in an earlier run, skipping", "file_id", prev.FileID)
		return task.FileID, p.journal.Transition(jctx, task, models.StatusCompleted, p.clock.Now(), "reused journal entry")
	}

	res, err := p.api.CreateUploadTask(ctx, panapi.CreateUploadRequest{
		ParentID:  dir.ID,
		FileName:  a.Name,
		Size:      a.Size,
		ETag:      digest.Hex,
		Duplicate: p.cfg.DedupeStrategy,
	})
	if err != nil {
		return 0, p.abort(ctx, log, task, fmt.Errorf("%w: %s: %w", common.ErrUploadTask, a.Name, err))
	}
	if res.Reuse {
		if res.FileID == 0 {
			return 0, p.abort(ctx, log, task, fmt.Errorf("%w: %s: reuse reported without a file id", common.ErrUploadTask, a.Name))
		}
		task.FileID = res.FileID
		log.Info(ctx, "server already has this content, no upload needed", "file_id", res.FileID)
		return task.FileID, p.journal.Transition(jctx, task, models.StatusCompleted, p.clock.Now(), "instant upload")
	}

	task.PreuploadID = res.PreuploadID
	if err := p.journal.Save(jctx, task); err != nil {
		return 0, p.abort(ctx, log, task, err)
	}

	if err := p.journal.Transition(jctx, task, models.StatusSlicesUploading, p.clock.Now(), ""); err != nil {
		return 0, p.abort(ctx, log, task, err)
	}
	log.Info(ctx, "uploading", "bytes", a.Size, "slices", task.SliceCount(), "etag", digest.Hex)

	if err := p.slices.Upload(ctx, task); err != nil {
		return 0, p.abort(ctx, log, task, err)
	}

	if err := p.poller.Complete(ctx, task); err != nil {
		return 0, p.abort(ctx, log, task, err)
	}

	log.Info(ctx, "uploaded", "file_id", task.FileID)
	return task.FileID, nil
}

// abort marks a non-terminal task Aborted and returns cause.
func (p *Pipeline) abort(ctx context.Context, log logging.Logger, task *models.UploadTask, cause error) error {
	log.Error(ctx, "upload failed", "status", task.Status, "error", cause)
	if task.Status.Terminal() {
		return cause
	}
	if err := p.journal.Transition(context.WithoutCancel(ctx), task, models.StatusAborted, p.clock.Now(), cause.Error()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
