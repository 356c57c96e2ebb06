package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haebom/tariff/internal/config"
	"github.com/haebom/tariff/internal/domain/news"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	sections := filepath.Join(dir, "sections.csv")
	entries := filepath.Join(dir, "entries.csv")
	require.NoError(t, os.WriteFile(sections, []byte("section,name\nI,live animals\n"), 0o644))
	require.NoError(t, os.WriteFile(entries, []byte("section,hscode,description,parent,level\nI,01,Animals; live,TOTAL,2\nI,0101,Horses; live,01,4\n"), 0o644))

	cfg := config.Default()
	cfg.Datasets.SectionsPath = sections
	cfg.Datasets.EntriesPath = entries
	cfg.Metrics.Enabled = true
	return cfg
}

func TestRuntime_DatasetsAndDashboard(t *testing.T) {
	rt, err := NewWithLogger(testConfig(t), "test", logging.NewNopLogger())
	require.NoError(t, err)
	defer rt.Close()
	require.NotNil(t, rt.Collector)

	m, err := rt.Datasets(context.Background())
	require.NoError(t, err)
	require.True(t, m.Ready())

	svc := rt.Dashboard(m)
	res, err := svc.Search(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	events, err := rt.Events()
	require.NoError(t, err)
	assert.Nil(t, events, "kafka disabled by default")
}

func TestRuntime_DatasetsMissingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Datasets.EntriesPath = filepath.Join(t.TempDir(), "missing.csv")
	rt, err := NewWithLogger(cfg, "test", logging.NewNopLogger())
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.Datasets(context.Background())
	assert.Error(t, err)
}

func TestRuntime_NewsOnRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()

	rt, err := NewWithLogger(cfg, "test", logging.NewNopLogger())
	require.NoError(t, err)

	svc, err := rt.News(context.Background())
	require.NoError(t, err)
	res, err := svc.Query(context.Background(), news.SearchParams{})
	require.NoError(t, err)
	assert.Zero(t, res.Total)

	check := rt.RedisCheck()
	require.NotNil(t, check)
	assert.NoError(t, check(context.Background()))
	assert.Nil(t, rt.ObjectsCheck())

	require.NoError(t, rt.Close())
}
