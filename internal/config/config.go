// Package config loads the run configuration from defaults, an optional YAML file and the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/geo-pipeline/internal/dataset"
	"github.com/askiada/geo-pipeline/internal/fetch"
)

const (
	// FileEnv names the environment variable holding the path of the YAML configuration file.
	FileEnv = "GEOPIPE_CONFIG"

	envPrefix = "GEOPIPE_"

	defaultDataDir     = "data"
	defaultLogLevel    = "info"
	defaultHTTPTimeout = 10 * time.Minute
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything a run needs.
type Config struct {
	DataDir     string        `yaml:"data_dir"`
	BaseURL     string        `yaml:"base_url"`
	Dataset     string        `yaml:"dataset"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	GraphFile   string        `yaml:"graph_file"`
	MetricsFile string        `yaml:"metrics_file"`
	Force       bool          `yaml:"force"`
}

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		DataDir:     defaultDataDir,
		BaseURL:     fetch.DefaultBaseURL,
		Dataset:     dataset.DefaultID,
		LogLevel:    defaultLogLevel,
		LogFormat:   FormatText,
		HTTPTimeout: defaultHTTPTimeout,
	}
}

// FromEnv loads the file named by GEOPIPE_CONFIG, if any, then applies the process environment.
func FromEnv() (*Config, error) {
	return Load(os.Getenv(FileEnv), os.LookupEnv)
}

// Load applies the YAML file at path (skipped when empty) on top of the defaults, then the
// GEOPIPE_* variables found through lookup. The result is validated.
func Load(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read config file %s", path)
		}

		err = yaml.Unmarshal(data, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse config file %s", path)
		}
	}

	if lookup != nil {
		err := cfg.applyEnv(lookup)
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		"DATA_DIR":     &c.DataDir,
		"BASE_URL":     &c.BaseURL,
		"DATASET":      &c.Dataset,
		"LOG_LEVEL":    &c.LogLevel,
		"LOG_FORMAT":   &c.LogFormat,
		"GRAPH_FILE":   &c.GraphFile,
		"METRICS_FILE": &c.MetricsFile,
	}

	for key, field := range strs {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookup(envPrefix + "HTTP_TIMEOUT"); ok && v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "unable to parse %sHTTP_TIMEOUT", envPrefix)
		}

		c.HTTPTimeout = timeout
	}

	if v, ok := lookup(envPrefix + "FORCE"); ok && v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "unable to parse %sFORCE", envPrefix)
		}

		c.Force = force
	}

	return nil
}

// Validate checks the fields a run cannot do without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.Wrap(ErrInvalidConfig, "data_dir is empty")
	}

	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.Wrap(ErrInvalidConfig, "base_url is empty")
	}

	if c.HTTPTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "http_timeout %s is negative", c.HTTPTimeout)
	}

	switch c.LogFormat {
	case FormatText, FormatJSON:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown log_format %q", c.LogFormat)
	}

	err := dataset.Validate(c.Dataset)
	if err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}

	return nil
}
