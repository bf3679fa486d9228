package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// FailurePolicy decides what happens to the batch when one file fails.
type FailurePolicy string

const (
	// PolicyAbort stops the run at the first failed file and issues no share.
	PolicyAbort FailurePolicy = "abort"
	// PolicyIsolate keeps going, shares the successes and reports every
	// failure at the end.
	PolicyIsolate FailurePolicy = "isolate"
)

const (
	KiB int64 = 1024
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB
)

// Config holds runtime settings for the upload pipeline. Endpoints, sizes
// and timings all live here so tests can point the components at a fake
// backend.
type Config struct {
	// Remote service.
	APIBaseURL        string
	ParentDirectoryID int64
	DirectoryPrefix   string
	DedupeStrategy    int

	// Files.
	ArtifactDir       string
	ArtifactExt       string
	SliceSize         int64
	ChecksumBlockSize int
	MaxFileSize       int64
	MaxNameLength     int

	// Completion polling.
	PollAttempts int
	PollInterval time.Duration

	// Transport.
	APITimeout       time.Duration
	SliceTimeout     time.Duration
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	TokenRefreshSkew time.Duration

	// Share.
	ShareExpireDays   int
	ShareBaseURL      string
	SharePassword     string
	ShareTrafficLimit int64

	// Run shape.
	FailurePolicy FailurePolicy
	Concurrency   int

	// Local journal; empty means in-memory.
	JournalPath string

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with production defaults for the 123pan open
// platform.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://open-api.123pan.com"
	c.ParentDirectoryID = 0
	c.DirectoryPrefix = "debian"
	c.DedupeStrategy = 1

	c.ArtifactDir = "."
	c.ArtifactExt = ".iso"
	c.SliceSize = 5 * MiB
	c.ChecksumBlockSize = int(4 * KiB)
	c.MaxFileSize = 10 * GiB
	c.MaxNameLength = 255

	c.PollAttempts = 30
	c.PollInterval = 2 * time.Second

	c.APITimeout = 30 * time.Second
	c.SliceTimeout = 10 * time.Minute
	c.RetryAttempts = 3
	c.RetryBaseDelay = 500 * time.Millisecond
	c.RetryMaxDelay = 10 * time.Second
	c.TokenRefreshSkew = time.Minute

	c.ShareExpireDays = 0
	c.ShareBaseURL = "https://www.123pan.com/s/"

	c.FailurePolicy = PolicyAbort
	c.Concurrency = 1

	c.JournalPath = ""

	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Default returns a Config with defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	return cfg
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base url %q is not an absolute url", c.APIBaseURL)
	}
	if c.SliceSize <= 0 {
		return errors.New("slice size must be positive")
	}
	if c.ChecksumBlockSize <= 0 {
		return errors.New("checksum block size must be positive")
	}
	if c.MaxFileSize <= 0 {
		return errors.New("max file size must be positive")
	}
	if c.MaxNameLength <= 0 {
		return errors.New("max name length must be positive")
	}
	if c.PollAttempts <= 0 {
		return errors.New("poll attempts must be positive")
	}
	if c.PollInterval < 0 {
		return errors.New("poll interval must not be negative")
	}
	if c.APITimeout <= 0 || c.SliceTimeout <= 0 {
		return errors.New("api and slice timeouts must be positive")
	}
	if c.RetryAttempts <= 0 {
		return errors.New("retry attempts must be at least 1")
	}
	if c.RetryAttempts > 1 && c.RetryBaseDelay <= 0 {
		return errors.New("retry base delay must be positive when retries are enabled")
	}
	if c.ShareExpireDays < 0 {
		return errors.New("share expiry must not be negative")
	}
	switch c.FailurePolicy {
	case PolicyAbort, PolicyIsolate:
	default:
		return fmt.Errorf("unknown failure policy %q", c.FailurePolicy)
	}
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be at least 1")
	}
	if c.DirectoryPrefix == "" {
		return errors.New("directory prefix must not be empty")
	}
	return nil
}
