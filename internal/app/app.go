// Package app wires configuration, logging, the upload journal, the open
// platform client and the upload pipeline into a single run.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dmitrijs2005/isoshare/internal/clock"
	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/config"
	"github.com/dmitrijs2005/isoshare/internal/credential"
	"github.com/dmitrijs2005/isoshare/internal/dbx"
	"github.com/dmitrijs2005/isoshare/internal/filex"
	"github.com/dmitrijs2005/isoshare/internal/logging"
	"github.com/dmitrijs2005/isoshare/internal/migrations"
	"github.com/dmitrijs2005/isoshare/internal/panapi"
	"github.com/dmitrijs2005/isoshare/internal/repositories/tasks"
	"github.com/dmitrijs2005/isoshare/internal/upload"
)

// GitHubOutputEnv names the file that receives step outputs in CI.
const GitHubOutputEnv = "GITHUB_OUTPUT"

// Params are the positional inputs of one run.
type Params struct {
	AccessKey   string
	SecretKey   credential.Secret
	Mode        string
	BuildNumber string
}

type App struct {
	cfg        *config.Config
	log        logging.Logger
	clock      clock.Clock
	httpClient *http.Client
	out        io.Writer
	getenv     func(string) string
	newRunID   func() string
}

type Option func(*App)

func WithHTTPClient(h *http.Client) Option {
	return func(a *App) { a.httpClient = h }
}

func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithOutput redirects the run summary and share url, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithGetenv replaces os.Getenv for the GITHUB_OUTPUT lookup.
func WithGetenv(fn func(string) string) Option {
	return func(a *App) { a.getenv = fn }
}

// WithRunID fixes the run id instead of generating a random one.
func WithRunID(id string) Option {
	return func(a *App) { a.newRunID = func() string { return id } }
}

// NewApp validates cfg and returns an App ready to Run.
func NewApp(cfg *config.Config, log logging.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUsage, err)
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		clock:    clock.Real(),
		out:      os.Stdout,
		getenv:   os.Getenv,
		newRunID: uuid.NewString,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Run uploads every artifact in the configured directory into the remote
// directory named after p.Mode and shares them. The returned report is
// non-nil whenever the pipeline started, even on failure.
func (a *App) Run(ctx context.Context, p Params) (*upload.Report, error) {
	if p.AccessKey == "" || p.SecretKey.Empty() {
		return nil, fmt.Errorf("%w: access key and secret key are required", common.ErrUsage)
	}

	dirName, err := upload.DirectoryName(a.cfg.DirectoryPrefix, p.Mode, p.BuildNumber, a.clock.Now())
	if err != nil {
		return nil, err
	}

	artifacts, err := filex.ListArtifacts(a.cfg.ArtifactDir, a.cfg.ArtifactExt)
	if err != nil {
		return nil, fmt.Errorf("discover artifacts: %w", err)
	}

	runID := a.newRunID()
	log := a.log.With("run_id", runID)
	log.Info(ctx, "starting run", "directory", dirName, "artifacts", len(artifacts), "policy", a.cfg.FailurePolicy)

	db, err := a.openJournal(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn(ctx, "closing journal", "error", err)
		}
	}()

	opts := []panapi.Option{panapi.WithLogger(log), panapi.WithClock(a.clock)}
	if a.httpClient != nil {
		opts = append(opts, panapi.WithHTTPClient(a.httpClient))
	}
	client := panapi.New(a.cfg, p.AccessKey, p.SecretKey, opts...)

	pipeline := upload.NewPipeline(a.cfg, client, tasks.NewJournal(db), a.clock, log)
	report, runErr := pipeline.Run(ctx, runID, dirName, artifacts)

	if len(report.Tasks) > 0 {
		if err := PrintSummary(a.out, report); err != nil {
			log.Warn(ctx, "printing summary", "error", err)
		}
	}

	// Under the isolate policy a partial batch is still shared.
	if report.Share != nil {
		if err := a.publish(report.Share.URL); err != nil {
			return report, multierr.Append(runErr, err)
		}
	}

	return report, runErr
}

func (a *App) openJournal(ctx context.Context) (*sql.DB, error) {
	dsn := a.cfg.JournalPath
	if dsn == "" {
		dsn = dbx.MemoryDSN
	} else if err := filex.EnsureParentDir(dsn); err != nil {
		return nil, fmt.Errorf("journal directory: %w", err)
	}

	db, err := dbx.OpenSQLite(ctx, dsn, migrations.Migrations)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return db, nil
}

func (a *App) publish(shareURL string) error {
	if _, err := fmt.Fprintf(a.out, "share_url=%s\n", shareURL); err != nil {
		return err
	}
	return PublishOutput(a.getenv(GitHubOutputEnv), "share_url", shareURL)
}
