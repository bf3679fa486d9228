package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/logging"
	"github.com/dmitrijs2005/isoshare/internal/models"
)

// ShareOptions are the optional share settings. Zero values mean permanent,
// no password, no traffic limit.
type ShareOptions struct {
	ExpireDays   int
	Password     string
	TrafficLimit int64
	// BaseURL turns a bare share key into a URL.
	BaseURL string
}

// ShareIssuer creates the run's single share.
type ShareIssuer struct {
	api  ShareAPI
	opts ShareOptions
	log  logging.Logger
}

func NewShareIssuer(api ShareAPI, opts ShareOptions, log logging.Logger) *ShareIssuer {
	return &ShareIssuer{api: api, opts: opts, log: log}
}

// Issue shares fileIDs, in the given order, under name.
func (s *ShareIssuer) Issue(ctx context.Context, name string, fileIDs []int64) (models.ShareResult, error) {
	if len(fileIDs) == 0 {
		return models.ShareResult{}, fmt.Errorf("%w: no files to share", common.ErrShareCreation)
	}

	res, err := s.api.CreateShare(ctx, models.ShareRequest{
		Name:         name,
		FileIDs:      fileIDs,
		ExpireDays:   s.opts.ExpireDays,
		Password:     s.opts.Password,
		TrafficLimit: s.opts.TrafficLimit,
	})
	if err != nil {
		return models.ShareResult{}, fmt.Errorf("%w: %w", common.ErrShareCreation, err)
	}

	if res.URL == "" && res.Key != "" {
		res.URL = ShareURL(s.opts.BaseURL, res.Key)
	}
	if res.URL == "" {
		return models.ShareResult{}, fmt.Errorf("%w: server returned neither url nor key", common.ErrShareCreation)
	}

	s.log.Info(ctx, "share created", "share", name, "files", len(fileIDs), "url", res.URL)
	return res, nil
}

// ShareURL joins base and key with exactly one slash.
func ShareURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
