package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadJSON_OverridesOnlyPresentKeys(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"api_base_url":        "http://127.0.0.1:9000",
		"parent_directory_id": 42,
		"poll_interval":       "500ms",
		"slice_timeout":       int64(3 * time.Minute),
		"failure_policy":      "isolate",
		"concurrency":         4,
	})

	cfg := Default()
	require.NoError(t, LoadJSON(path, cfg))

	assert.Equal(t, "http://127.0.0.1:9000", cfg.APIBaseURL)
	assert.Equal(t, int64(42), cfg.ParentDirectoryID)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 3*time.Minute, cfg.SliceTimeout)
	assert.Equal(t, PolicyIsolate, cfg.FailurePolicy)
	assert.Equal(t, 4, cfg.Concurrency)

	// untouched keys keep their defaults
	assert.Equal(t, 30, cfg.PollAttempts)
	assert.Equal(t, 5*MiB, cfg.SliceSize)
}

func TestLoadJSON_EmptyPathIsNoop(t *testing.T) {
	cfg := Default()
	require.NoError(t, LoadJSON("", cfg))
	assert.Equal(t, Default(), cfg)
}

func TestLoadJSON_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		err := LoadJSON(filepath.Join(t.TempDir(), "nope.json"), Default())
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		require.Error(t, LoadJSON(path, Default()))
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{"poll_interval": "often"})
		require.Error(t, LoadJSON(path, Default()))
	})
}
