package config

import (
	"time"

	"github.com/urfave/cli/v2"
)

const envPrefix = "ISOSHARE_"

func env(name string) []string { return []string{envPrefix + name} }

// Flags returns the command-line flags that override Config fields. Defaults
// shown in help come from def. Every flag can also be set through an
// ISOSHARE_* environment variable.
func Flags(def *Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "api-url", Usage: "open platform base `URL`", EnvVars: env("API_URL"), Value: def.APIBaseURL},
		&cli.Int64Flag{Name: "parent-id", Usage: "remote parent directory `ID`", EnvVars: env("PARENT_ID"), Value: def.ParentDirectoryID},
		&cli.StringFlag{Name: "prefix", Usage: "remote directory name prefix", EnvVars: env("PREFIX"), Value: def.DirectoryPrefix},
		&cli.IntFlag{Name: "dedupe", Usage: "server duplicate handling strategy", EnvVars: env("DEDUPE"), Value: def.DedupeStrategy},

		&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "artifact `DIR`", EnvVars: env("ARTIFACT_DIR"), Value: def.ArtifactDir},
		&cli.StringFlag{Name: "ext", Usage: "artifact file extension", EnvVars: env("ARTIFACT_EXT"), Value: def.ArtifactExt},
		&cli.Int64Flag{Name: "slice-size", Usage: "upload slice size in `BYTES`", EnvVars: env("SLICE_SIZE"), Value: def.SliceSize},
		&cli.Int64Flag{Name: "max-file-size", Usage: "largest accepted artifact in `BYTES`", EnvVars: env("MAX_FILE_SIZE"), Value: def.MaxFileSize},

		&cli.IntFlag{Name: "poll-attempts", Usage: "upload result polls before giving up", EnvVars: env("POLL_ATTEMPTS"), Value: def.PollAttempts},
		&cli.DurationFlag{Name: "poll-interval", Usage: "delay between upload result polls", EnvVars: env("POLL_INTERVAL"), Value: def.PollInterval},

		&cli.DurationFlag{Name: "api-timeout", Usage: "timeout for a single API call", EnvVars: env("API_TIMEOUT"), Value: def.APITimeout},
		&cli.DurationFlag{Name: "slice-timeout", Usage: "timeout for a single slice PUT", EnvVars: env("SLICE_TIMEOUT"), Value: def.SliceTimeout},
		&cli.IntFlag{Name: "retry-attempts", Usage: "attempts per transient failure, 1 disables retry", EnvVars: env("RETRY_ATTEMPTS"), Value: def.RetryAttempts},
		&cli.DurationFlag{Name: "retry-base-delay", Usage: "first retry backoff", EnvVars: env("RETRY_BASE_DELAY"), Value: def.RetryBaseDelay},
		&cli.DurationFlag{Name: "retry-max-delay", Usage: "backoff ceiling", EnvVars: env("RETRY_MAX_DELAY"), Value: def.RetryMaxDelay},

		&cli.IntFlag{Name: "share-expire-days", Usage: "share lifetime in days, 0 is permanent", EnvVars: env("SHARE_EXPIRE_DAYS"), Value: def.ShareExpireDays},
		&cli.StringFlag{Name: "share-base-url", Usage: "prefix for share keys without a url", EnvVars: env("SHARE_BASE_URL"), Value: def.ShareBaseURL},
		&cli.StringFlag{Name: "share-password", Usage: "optional share extraction code", EnvVars: env("SHARE_PASSWORD")},
		&cli.Int64Flag{Name: "share-traffic-limit", Usage: "optional share traffic limit in `BYTES`", EnvVars: env("SHARE_TRAFFIC_LIMIT")},

		&cli.StringFlag{Name: "failure-policy", Usage: "abort or isolate", EnvVars: env("FAILURE_POLICY"), Value: string(def.FailurePolicy)},
		&cli.IntFlag{Name: "concurrency", Usage: "files uploaded in parallel", EnvVars: env("CONCURRENCY"), Value: def.Concurrency},
		&cli.StringFlag{Name: "journal", Usage: "sqlite journal `FILE`, in-memory when empty", EnvVars: env("JOURNAL")},

		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", EnvVars: env("LOG_LEVEL"), Value: def.LogLevel},
		&cli.StringFlag{Name: "log-format", Usage: "text or json", EnvVars: env("LOG_FORMAT"), Value: def.LogFormat},
	}
}

// ApplyFlags copies every flag the user actually set, on the command line or
// through the environment, into cfg. Unset flags leave cfg untouched so a
// JSON file loaded earlier keeps its values.
func ApplyFlags(c *cli.Context, cfg *Config) {
	flagString(c, "api-url", &cfg.APIBaseURL)
	flagInt64(c, "parent-id", &cfg.ParentDirectoryID)
	flagString(c, "prefix", &cfg.DirectoryPrefix)
	flagInt(c, "dedupe", &cfg.DedupeStrategy)

	flagString(c, "dir", &cfg.ArtifactDir)
	flagString(c, "ext", &cfg.ArtifactExt)
	flagInt64(c, "slice-size", &cfg.SliceSize)
	flagInt64(c, "max-file-size", &cfg.MaxFileSize)

	flagInt(c, "poll-attempts", &cfg.PollAttempts)
	flagDuration(c, "poll-interval", &cfg.PollInterval)

	flagDuration(c, "api-timeout", &cfg.APITimeout)
	flagDuration(c, "slice-timeout", &cfg.SliceTimeout)
	flagInt(c, "retry-attempts", &cfg.RetryAttempts)
	flagDuration(c, "retry-base-delay", &cfg.RetryBaseDelay)
	flagDuration(c, "retry-max-delay", &cfg.RetryMaxDelay)

	flagInt(c, "share-expire-days", &cfg.ShareExpireDays)
	flagString(c, "share-base-url", &cfg.ShareBaseURL)
	flagString(c, "share-password", &cfg.SharePassword)
	flagInt64(c, "share-traffic-limit", &cfg.ShareTrafficLimit)

	if c.IsSet("failure-policy") {
		cfg.FailurePolicy = FailurePolicy(c.String("failure-policy"))
	}
	flagInt(c, "concurrency", &cfg.Concurrency)
	flagString(c, "journal", &cfg.JournalPath)

	flagString(c, "log-level", &cfg.LogLevel)
	flagString(c, "log-format", &cfg.LogFormat)
}

func flagString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func flagInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

func flagInt64(c *cli.Context, name string, dst *int64) {
	if c.IsSet(name) {
		*dst = c.Int64(name)
	}
}

func flagDuration(c *cli.Context, name string, dst *time.Duration) {
	if c.IsSet(name) {
		*dst = c.Duration(name)
	}
}
