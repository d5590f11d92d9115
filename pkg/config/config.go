// Package config loads client configuration from defaults, an optional
// user config file, and environment variables, in that order. Later layers
// win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fleak-ai/zephflow-go/pkg/versioning"
)

// Config holds client configuration.
type Config struct {
	// EngineVersion is the engine release to use.
	EngineVersion string `yaml:"engine_version"`

	// MainJarOverride is a pre-supplied artifact path that bypasses cache
	// and network entirely.
	MainJarOverride string `yaml:"main_jar"`

	// CacheDir is the artifact cache directory ("" selects ~/.zephflow/jars).
	CacheDir string `yaml:"cache_dir"`

	// RepoURL is the release repository for artifact downloads.
	RepoURL string `yaml:"repo_url"`

	// ArtifactMirror is an optional object-store mirror
	// (s3://bucket/prefix or gs://bucket/prefix).
	ArtifactMirror string `yaml:"artifact_mirror"`

	// MinJavaMajor is the runtime preflight floor.
	MinJavaMajor int `yaml:"min_java_major"`

	// HTTPTimeout is the per-attempt download timeout.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		EngineVersion: versioning.DefaultEngineVersion,
		RepoURL:       versioning.DefaultRepoURL,
		MinJavaMajor:  17,
		HTTPTimeout:   30 * time.Second,
	}
}

// Load builds the effective configuration: defaults, then the user config
// file when present, then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	path, err := userConfigPath()
	if err == nil {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func userConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err //nolint:wrapcheck // absence of home just skips the file layer
	}
	return filepath.Join(home, ".zephflow", "config.yaml"), nil
}

// loadFile merges the YAML file at path into cfg. A missing file is fine;
// an unreadable or malformed one is an error, not silently ignored.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // fixed user-scoped path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("malformed config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ZEPHFLOW_ENGINE_VERSION"); v != "" {
		cfg.EngineVersion = v
	}
	if v := os.Getenv("ZEPHFLOW_MAIN_JAR"); v != "" {
		cfg.MainJarOverride = v
	}
	if v := os.Getenv("ZEPHFLOW_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("ZEPHFLOW_REPO_URL"); v != "" {
		cfg.RepoURL = v
	}
	if v := os.Getenv("ZEPHFLOW_ARTIFACT_MIRROR"); v != "" {
		cfg.ArtifactMirror = v
	}
	if v := os.Getenv("ZEPHFLOW_MIN_JAVA"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ZEPHFLOW_MIN_JAVA: %w", err)
		}
		cfg.MinJavaMajor = n
	}
	if v := os.Getenv("ZEPHFLOW_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ZEPHFLOW_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	return nil
}
