package upload

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/logging"
	"github.com/dmitrijs2005/isoshare/internal/models"
)

// Run modes accepted on the command line.
const (
	ModeScheduled = "scheduled"
	ModeManual    = "manual"
)

// DirectoryName derives the run's remote directory: <prefix>-<YYYY-MM-DD>
// for scheduled runs (local date of now) and <prefix>-custom-<build> for
// manual ones, where an empty build number means "0".
func DirectoryName(prefix, mode, build string, now time.Time) (string, error) {
	switch mode {
	case ModeScheduled:
		return fmt.Sprintf("%s-%s", prefix, now.Format("2006-01-02")), nil
	case ModeManual:
		build = strings.TrimSpace(build)
		if build == "" {
			build = "0"
		}
		return fmt.Sprintf("%s-custom-%s", prefix, build), nil
	default:
		return "", fmt.Errorf("%w: invalid mode %q, use %q or %q", common.ErrUsage, mode, ModeScheduled, ModeManual)
	}
}

// DirectoryResolver maps a directory name to a remote id, reusing an
// existing directory when the listing finds one and creating it otherwise.
// Results are memoized per resolver.
//
// Check-then-create is not atomic on the server: two runs resolving the
// same name at the same moment can both create it.
type DirectoryResolver struct {
	api      DirectoryAPI
	parentID int64
	log      logging.Logger

	mu    sync.Mutex
	known map[string]int64
}

func NewDirectoryResolver(api DirectoryAPI, parentID int64, log logging.Logger) *DirectoryResolver {
	return &DirectoryResolver{api: api, parentID: parentID, log: log, known: map[string]int64{}}
}

// Resolve returns the directory for name.
func (r *DirectoryResolver) Resolve(ctx context.Context, name string) (models.RemoteDirectory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.known[name]; ok {
		return models.RemoteDirectory{Name: name, ID: id}, nil
	}

	id, found, err := r.api.FindDirectory(ctx, r.parentID, name)
	if err != nil {
		return models.RemoteDirectory{}, fmt.Errorf("%w: list %q: %w", common.ErrDirectoryResolution, name, err)
	}

	if found {
		r.log.Info(ctx, "reusing existing directory", "directory", name, "directory_id", id)
	} else {
		id, err = r.api.CreateDirectory(ctx, r.parentID, name)
		if err != nil {
			return models.RemoteDirectory{}, fmt.Errorf("%w: create %q: %w", common.ErrDirectoryResolution, name, err)
		}
		r.log.Info(ctx, "directory created", "directory", name, "directory_id", id)
	}

	r.known[name] = id
	return models.RemoteDirectory{Name: name, ID: id}, nil
}
