package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 8081
  mode: debug
datasets:
  source: file
  sections_path: data/hs_sections.csv
  entries_path: data/hs_data.csv
reference:
  max_rows: 25
pricing:
  base_price: 250
redis:
  enabled: true
  addr: "localhost:6380"
news:
  retention_days: 30
  api_key: "secret"
  live_cache_ttl: 2m
kafka:
  enabled: false
log:
  level: debug
  format: console
`

func createTempConfigFile(t *testing.T, content string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, 25, cfg.Reference.MaxRows)
	assert.Equal(t, 250.0, cfg.Pricing.BasePrice)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.Equal(t, 30, cfg.News.RetentionDays)
	assert.Equal(t, "secret", cfg.News.APIKey)
	assert.Equal(t, 2*time.Minute, cfg.News.LiveCacheTTL)
	assert.Equal(t, "console", cfg.Log.Format)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultPageSize, cfg.News.PageSize)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "invalid_yaml: ["))
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "news:\n  retention_days: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TARIFF_SERVER_PORT", "9999")
	t.Setenv("TARIFF_NEWS_API_KEY", "from-env")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.News.APIKey)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("TARIFF_REFERENCE_MAX_ROWS", "75")
	t.Setenv("TARIFF_DATASETS_POLICY_PATH", "/etc/tariff/policy.json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Reference.MaxRows)
	assert.Equal(t, "/etc/tariff/policy.json", cfg.Datasets.PolicyPath)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestMustLoad(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() { MustLoad(path) })
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestWatch_ReportsChanges(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 16)
	require.NoError(t, Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil))

	updated := strings.Replace(validConfigYAML, "level: debug", "level: warn", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))

	// a write may surface as several events; wait for the final content
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Log.Level == "warn" {
				return
			}
		case <-deadline:
			t.Fatal("no change notification")
		}
	}
}
