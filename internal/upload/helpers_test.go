package upload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/isoshare/internal/clock"
	"github.com/dmitrijs2005/isoshare/internal/config"
	"github.com/dmitrijs2005/isoshare/internal/credential"
	"github.com/dmitrijs2005/isoshare/internal/dbx"
	"github.com/dmitrijs2005/isoshare/internal/filex"
	"github.com/dmitrijs2005/isoshare/internal/logging"
	"github.com/dmitrijs2005/isoshare/internal/migrations"
	"github.com/dmitrijs2005/isoshare/internal/panapi"
	"github.com/dmitrijs2005/isoshare/internal/panapi/pantest"
	"github.com/dmitrijs2005/isoshare/internal/repositories/tasks"
)

const (
	testAccessKey = "ak"
	testSecretKey = "sk"
)

var t0 = time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)

type testEnv struct {
	srv     *pantest.Server
	cfg     *config.Config
	clock   *clock.FakeClock
	client  *panapi.Client
	journal *tasks.Journal
	dir     string
}

func newEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	srv := pantest.NewServer(t, testAccessKey, testSecretKey)

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL
	cfg.SliceSize = 1024
	cfg.RetryAttempts = 1
	if mutate != nil {
		mutate(cfg)
	}

	clk := clock.Fake(t0)
	client := panapi.New(cfg, testAccessKey, credential.NewSecret(testSecretKey),
		panapi.WithHTTPClient(srv.Client()), panapi.WithClock(clk))

	db, err := dbx.OpenSQLite(context.Background(), dbx.MemoryDSN, migrations.Migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &testEnv{
		srv:     srv,
		cfg:     cfg,
		clock:   clk,
		client:  client,
		journal: tasks.NewJournal(db),
		dir:     t.TempDir(),
	}
}

func (e *testEnv) pipeline() *Pipeline {
	return NewPipeline(e.cfg, e.client, e.journal, e.clock, logging.Discard())
}

// content returns size deterministic bytes that differ per seed.
func content(seed byte, size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i)*7 + seed
	}
	return b
}

func (e *testEnv) artifact(t *testing.T, name string, data []byte) filex.Artifact {
	t.Helper()
	p := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return filex.Artifact{Path: p, Name: name, Size: int64(len(data))}
}
