package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://quickstats.nass.usda.gov/api", cfg.NASS.BaseURL)
	assert.Equal(t, "CA", cfg.NASS.State)
	assert.Equal(t, 2022, cfg.NASS.Year)
	assert.Equal(t, 3, cfg.NASS.MaxRetries)
	assert.InDelta(t, 0.90, cfg.Match.AutoThreshold, 0.001)
	assert.InDelta(t, 0.60, cfg.Match.ReviewThreshold, 0.001)
	assert.Equal(t, 5, cfg.Match.TopN)
	assert.Equal(t, ".biositing", cfg.Cache.Dir)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  database_url: ":memory:"
log:
  level: debug
  format: console
match:
  auto_threshold: 0.95
nass:
  state: OR
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, ":memory:", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 0.95, cfg.Match.AutoThreshold, 0.001)
	assert.Equal(t, "OR", cfg.NASS.State)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.60, cfg.Match.ReviewThreshold, 0.001)
	assert.Equal(t, 5, cfg.Match.TopN)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("BIOSITING_STORE_DRIVER", "postgres")
	t.Setenv("BIOSITING_LOG_LEVEL", "warn")
	t.Setenv("BIOSITING_NASS_KEY", "secret")
	t.Setenv("BIOSITING_STORE_DATABASE_URL", "postgres://localhost/biositing")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file, including keys absent from it
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "secret", cfg.NASS.Key)
	assert.Equal(t, "postgres://localhost/biositing", cfg.Store.DatabaseURL)
	assert.NoError(t, cfg.ValidateStore())
}

func TestLoadEnvOnly(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	// No config.yaml at all: env must still land on keys with no
	// file entry.
	t.Setenv("BIOSITING_STORE_DATABASE_URL", ":memory:")
	t.Setenv("BIOSITING_NASS_KEY", "k")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Store.DatabaseURL)
	assert.Equal(t, "k", cfg.NASS.Key)
}

func TestValidateStore(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Driver: "postgres"}}
	err := cfg.ValidateStore()
	assert.ErrorContains(t, err, "database_url")

	cfg.Store.DatabaseURL = "postgres://localhost/biositing"
	assert.NoError(t, cfg.ValidateStore())

	cfg.Store.Driver = "oracle"
	err = cfg.ValidateStore()
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nonsense", Format: "json"})
	assert.ErrorContains(t, err, "parse log level")
}
