// Package config loads runtime configuration for the isoshare uploader.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see LoadJSON), selected with --config / -c.
//  3. Command-line flags and their ISOSHARE_* environment variables (see
//     Flags and ApplyFlags), applied on top of the result.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "2s" or
// integer nanoseconds. Every key is optional:
//
//	{
//	  "api_base_url": "https://open-api.123pan.com",
//	  "parent_directory_id": 0,
//	  "slice_size": 5242880,
//	  "poll_attempts": 30,
//	  "poll_interval": "2s",
//	  "failure_policy": "abort",
//	  "concurrency": 1
//	}
//
// Primary API
//
//   - type Config                  : every tunable the pipeline reads
//   - func Default() *Config       : defaults only
//   - func LoadJSON(path, *Config) : overlays a JSON file
//   - func Flags, ApplyFlags       : urfave/cli flag overlay
//   - func (*Config) Validate()    : rejects impossible combinations
package config
