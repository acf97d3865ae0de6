package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodesearch/semcode/internal/errs"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadAppliesFileOverOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlBody := "core:\n  logLevel: debug\nembedding:\n  provider: test\n  dimension: 16\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlBody), 0o644))

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Core.LogLevel)
	assert.Equal(t, 16, cfg.Embedding.Dimension)
	// Unset fields keep their defaults.
	assert.Equal(t, "local", cfg.VectorDB.Provider)
}

func TestLoadRejectsUnrecognizedProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("embedding:\n  provider: carrier-pigeon\n"), 0o644))

	_, err := Load(dir, "")
	require.Error(t, err)
	assert.False(t, errs.IsRetriable(err))
}

func TestEnvOverridesTakePrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("core:\n  logLevel: warn\n"), 0o644))
	t.Setenv("SCA_CORE_LOG_LEVEL", "debug")

	cfg, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Core.LogLevel)
}

func TestEnvOverrideInvalidIntYieldsExpectedError(t *testing.T) {
	t.Setenv("SCA_CORE_TIMEOUT_MS", "not-a-number")

	_, err := Load(t.TempDir(), "")
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.KindExpected, e.Kind)
	assert.Contains(t, e.Code.String(), "INVALID_ENV_SCA_CORE_TIMEOUT_MS")
}

func TestValidateCatchesEachSection(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"core maxConcurrency", func(c *Config) { c.Core.MaxConcurrency = 0 }},
		{"core logLevel", func(c *Config) { c.Core.LogLevel = "verbose" }},
		{"embedding provider", func(c *Config) { c.Embedding.Provider = "magic" }},
		{"vectorDb provider", func(c *Config) { c.VectorDB.Provider = "oracle" }},
		{"vectorDb indexMode", func(c *Config) { c.VectorDB.IndexMode = "sparse-only" }},
		{"vectorDb snapshotStorage custom missing dir", func(c *Config) {
			c.VectorDB.SnapshotStorage = "custom"
			c.VectorDB.SnapshotCustomDir = ""
		}},
		{"cache diskProvider", func(c *Config) {
			c.Cache.DiskEnabled = true
			c.Cache.DiskProvider = "oracle"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := Default()
	cfg.Embedding.Dimension = 64
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir, path)
	require.NoError(t, err)
	assert.Equal(t, 64, loaded.Embedding.Dimension)
}
