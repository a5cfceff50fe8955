// Package config builds the immutable pipeline configuration from the
// environment. All inputs arrive as environment variables following the
// linuxdeploy plugin convention; they are read exactly once, validated, and
// passed into the pipeline as a value that is never mutated afterwards.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/viper"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/types"
)

// Config is the full configuration of one pipeline run
type Config struct {
	// AppDir is the bundle root; created if missing
	AppDir string

	// Architecture selects the installer variant
	Architecture types.Architecture

	// Spec describes what gets installed into the conda prefix
	Spec types.EnvironmentSpec

	// SkipRelocation disables the relocation engine entirely
	SkipRelocation bool

	// SkipCleanup is the raw skip-list; parsed by pkg/cleanup before the
	// pipeline starts so bad tokens fail before any mutation
	SkipCleanup string

	// DownloadDir is the installer cache directory, shared across runs
	DownloadDir string

	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string
}

// FromEnv builds a Config for the given AppDir from the process environment
func FromEnv(appDir string) (*Config, error) {
	if appDir == "" {
		return nil, ErrMissingAppDir
	}

	v := viper.New()
	for key, env := range map[string]string{
		"arch":             "ARCH",
		"channels":         "CONDA_CHANNELS",
		"packages":         "CONDA_PACKAGES",
		"python-version":   "CONDA_PYTHON_VERSION",
		"pip-requirements": "PIP_REQUIREMENTS",
		"pip-prefix":       "PIP_PREFIX",
		"pip-workdir":      "PIP_WORKDIR",
		"pip-verbose":      "PIP_VERBOSE",
		"skip-adjust":      "CONDA_SKIP_ADJUST_PATHS",
		"skip-cleanup":     "CONDA_SKIP_CLEANUP",
		"download-dir":     "CONDA_DOWNLOAD_DIR",
		"log-level":        "CONDA_PLUGIN_LOG_LEVEL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	v.SetDefault("arch", string(types.ArchX8664))
	v.SetDefault("log-level", "info")

	cfg := &Config{
		AppDir:       appDir,
		Architecture: types.Architecture(v.GetString("arch")),
		Spec: types.EnvironmentSpec{
			Channels:        splitList(v.GetString("channels")),
			PythonVersion:   v.GetString("python-version"),
			Packages:        splitList(v.GetString("packages")),
			PipRequirements: types.ParseRequirements(v.GetString("pip-requirements")),
			PipPrefix:       v.GetString("pip-prefix"),
			PipWorkdir:      v.GetString("pip-workdir"),
			PipVerbose:      v.GetString("pip-verbose") != "",
		},
		SkipRelocation: v.GetString("skip-adjust") != "",
		SkipCleanup:    v.GetString("skip-cleanup"),
		DownloadDir:    v.GetString("download-dir"),
		LogLevel:       v.GetString("log-level"),
	}

	if cfg.DownloadDir == "" {
		cfg.DownloadDir = defaultDownloadDir()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects bad configuration before the pipeline touches anything
func (c *Config) validate() error {
	if !c.Architecture.Supported() {
		return &ConfigurationError{
			Err:   ErrUnsupportedArchitecture,
			Value: string(c.Architecture),
		}
	}

	if pin := c.Spec.PythonVersion; pin != "" {
		if _, err := semver.NewVersion(pin); err != nil {
			return &ConfigurationError{Err: ErrInvalidPythonVersion, Value: pin}
		}
	}

	return nil
}

// splitList splits a semicolon-delimited list, dropping empty entries
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	var out []string
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// defaultDownloadDir locates the per-user cache shared across invocations
func defaultDownloadDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "linuxdeploy-plugin-conda")
	}
	return filepath.Join(os.TempDir(), "linuxdeploy-plugin-conda")
}
