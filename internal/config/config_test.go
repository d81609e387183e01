package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/geo-pipeline/internal/config"
	"github.com/askiada/geo-pipeline/internal/fetch"
)

func env(vars map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]

		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "geopipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, fetch.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "GSE68849", cfg.Dataset)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.FormatText, cfg.LogFormat)
	assert.Equal(t, 10*time.Minute, cfg.HTTPTimeout)
	assert.False(t, cfg.Force)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
data_dir: /tmp/geo
dataset: GSE1
log_format: json
http_timeout: 30s
graph_file: pipeline.dot
force: true
`)

	cfg, err := config.Load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/geo", cfg.DataDir)
	assert.Equal(t, "GSE1", cfg.Dataset)
	assert.Equal(t, config.FormatJSON, cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "pipeline.dot", cfg.GraphFile)
	assert.True(t, cfg.Force)
	assert.Equal(t, fetch.DefaultBaseURL, cfg.BaseURL, "unset keys keep their default")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "data_dir: from-file\ndataset: GSE1\n")

	cfg, err := config.Load(path, env(map[string]string{
		"GEOPIPE_DATA_DIR":     "from-env",
		"GEOPIPE_BASE_URL":     "http://localhost:8080/",
		"GEOPIPE_LOG_LEVEL":    "debug",
		"GEOPIPE_HTTP_TIMEOUT": "1m",
		"GEOPIPE_METRICS_FILE": "geopipe.prom",
		"GEOPIPE_FORCE":        "true",
		"GEOPIPE_DATASET":      "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DataDir)
	assert.Equal(t, "GSE1", cfg.Dataset, "empty variables are ignored")
	assert.Equal(t, "http://localhost:8080/", cfg.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.HTTPTimeout)
	assert.Equal(t, "geopipe.prom", cfg.MetricsFile)
	assert.True(t, cfg.Force)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		file    string
		vars    map[string]string
		invalid bool
	}{
		"bad yaml":         {file: "data_dir: [unterminated"},
		"bad file timeout": {file: "http_timeout: soon"},
		"bad env timeout":  {vars: map[string]string{"GEOPIPE_HTTP_TIMEOUT": "soon"}},
		"bad env force":    {vars: map[string]string{"GEOPIPE_FORCE": "maybe"}},
		"bad format":       {vars: map[string]string{"GEOPIPE_LOG_FORMAT": "xml"}, invalid: true},
		"empty data dir":   {file: "data_dir: ' '", invalid: true},
		"empty base url":   {file: "base_url: ''", invalid: true},
		"bad dataset":      {vars: map[string]string{"GEOPIPE_DATASET": "../etc"}, invalid: true},
		"negative timeout": {vars: map[string]string{"GEOPIPE_HTTP_TIMEOUT": "-1s"}, invalid: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := ""
			if tc.file != "" {
				path = writeConfig(t, tc.file)
			}

			_, err := config.Load(path, env(tc.vars))
			require.Error(t, err)

			if tc.invalid {
				assert.ErrorIs(t, err, config.ErrInvalidConfig)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
