package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/isoshare/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "zero" so a file only overrides what it
// mentions.
type JsonConfig struct {
	APIBaseURL        *string         `json:"api_base_url"`
	ParentDirectoryID *int64          `json:"parent_directory_id"`
	DirectoryPrefix   *string         `json:"directory_prefix"`
	DedupeStrategy    *int            `json:"dedupe_strategy"`
	ArtifactDir       *string         `json:"artifact_dir"`
	ArtifactExt       *string         `json:"artifact_ext"`
	SliceSize         *int64          `json:"slice_size"`
	ChecksumBlockSize *int            `json:"checksum_block_size"`
	MaxFileSize       *int64          `json:"max_file_size"`
	MaxNameLength     *int            `json:"max_name_length"`
	PollAttempts      *int            `json:"poll_attempts"`
	PollInterval      *timex.Duration `json:"poll_interval"`
	APITimeout        *timex.Duration `json:"api_timeout"`
	SliceTimeout      *timex.Duration `json:"slice_timeout"`
	RetryAttempts     *int            `json:"retry_attempts"`
	RetryBaseDelay    *timex.Duration `json:"retry_base_delay"`
	RetryMaxDelay     *timex.Duration `json:"retry_max_delay"`
	TokenRefreshSkew  *timex.Duration `json:"token_refresh_skew"`
	ShareExpireDays   *int            `json:"share_expire_days"`
	ShareBaseURL      *string         `json:"share_base_url"`
	SharePassword     *string         `json:"share_password"`
	ShareTrafficLimit *int64          `json:"share_traffic_limit"`
	FailurePolicy     *string         `json:"failure_policy"`
	Concurrency       *int            `json:"concurrency"`
	JournalPath       *string         `json:"journal_path"`
	LogLevel          *string         `json:"log_level"`
	LogFormat         *string         `json:"log_format"`
}

// LoadJSON overlays cfg with the values present in the JSON file at path.
// An empty path is a no-op.
func LoadJSON(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	jc.apply(cfg)
	return nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setInt64(&cfg.ParentDirectoryID, jc.ParentDirectoryID)
	setString(&cfg.DirectoryPrefix, jc.DirectoryPrefix)
	setInt(&cfg.DedupeStrategy, jc.DedupeStrategy)
	setString(&cfg.ArtifactDir, jc.ArtifactDir)
	setString(&cfg.ArtifactExt, jc.ArtifactExt)
	setInt64(&cfg.SliceSize, jc.SliceSize)
	setInt(&cfg.ChecksumBlockSize, jc.ChecksumBlockSize)
	setInt64(&cfg.MaxFileSize, jc.MaxFileSize)
	setInt(&cfg.MaxNameLength, jc.MaxNameLength)
	setInt(&cfg.PollAttempts, jc.PollAttempts)
	setDuration(&cfg.PollInterval, jc.PollInterval)
	setDuration(&cfg.APITimeout, jc.APITimeout)
	setDuration(&cfg.SliceTimeout, jc.SliceTimeout)
	setInt(&cfg.RetryAttempts, jc.RetryAttempts)
	setDuration(&cfg.RetryBaseDelay, jc.RetryBaseDelay)
	setDuration(&cfg.RetryMaxDelay, jc.RetryMaxDelay)
	setDuration(&cfg.TokenRefreshSkew, jc.TokenRefreshSkew)
	setInt(&cfg.ShareExpireDays, jc.ShareExpireDays)
	setString(&cfg.ShareBaseURL, jc.ShareBaseURL)
	setString(&cfg.SharePassword, jc.SharePassword)
	setInt64(&cfg.ShareTrafficLimit, jc.ShareTrafficLimit)
	if jc.FailurePolicy != nil {
		cfg.FailurePolicy = FailurePolicy(*jc.FailurePolicy)
	}
	setInt(&cfg.Concurrency, jc.Concurrency)
	setString(&cfg.JournalPath, jc.JournalPath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setInt64(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
