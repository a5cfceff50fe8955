// Package cache manages the download cache for the Miniconda installer.
// The installer is fetched at most once per cache directory; repeated runs
// only perform a conditional freshness check against the remote artifact.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/logger"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/runner"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/types"
)

// DefaultBaseURL is the upstream Miniconda repository
const DefaultBaseURL = "https://repo.anaconda.com/miniconda"

// InstallerFilename maps an architecture to its installer artifact name
func InstallerFilename(arch types.Architecture) (string, error) {
	switch arch {
	case types.ArchX8664:
		return "Miniconda3-latest-Linux-x86_64.sh", nil
	case types.ArchI386, types.ArchI686:
		return "Miniconda3-latest-Linux-x86.sh", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedArchitecture, arch)
}

// Manager fetches and caches the installer artifact
type Manager struct {
	CacheDir string
	BaseURL  string
	Runner   runner.Runner
	Logger   logger.Logger
}

// NewManager creates a cache manager for the given directory
func NewManager(cacheDir string, run runner.Runner, log logger.Logger) *Manager {
	return &Manager{
		CacheDir: cacheDir,
		BaseURL:  DefaultBaseURL,
		Runner:   run,
		Logger:   log.WithStage("download"),
	}
}

// Fetch ensures a readable installer file exists in the cache directory and
// returns its path. Concurrent invocations sharing the cache directory
// serialize around a per-filename advisory lock; the fetch itself is
// conditional and resumable, so an up-to-date artifact costs one HTTP check.
func (m *Manager) Fetch(ctx context.Context, arch types.Architecture) (string, error) {
	filename, err := InstallerFilename(arch)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(m.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	artifact := filepath.Join(m.CacheDir, filename)

	lock, err := acquireLock(artifact + ".lock")
	if err != nil {
		return "", fmt.Errorf("failed to lock cache entry: %w", err)
	}
	defer lock.Release()

	// First touch: create the artifact with an epoch mtime so the
	// timestamping fetch below always consults the remote instead of
	// trusting a stale local copy indefinitely. Runs under the lock; a
	// concurrent invocation must never truncate an artifact another one
	// has already fetched.
	if _, err := os.Stat(artifact); os.IsNotExist(err) {
		if err := os.WriteFile(artifact, nil, 0o644); err != nil {
			return "", fmt.Errorf("failed to create cache entry: %w", err)
		}
		epoch := time.Unix(0, 0)
		if err := os.Chtimes(artifact, epoch, epoch); err != nil {
			return "", fmt.Errorf("failed to reset cache entry mtime: %w", err)
		}
	} else if err != nil {
		return "", err
	}

	m.Logger.Info("Checking installer freshness", logger.WithField("file", filename))

	// wget -N re-transfers only when the remote is newer; -c resumes a
	// partial file left by an interrupted run.
	cmd := runner.Command{
		Name: "wget",
		Args: []string{"--continue", "--timestamping", m.BaseURL + "/" + filename},
		Dir:  m.CacheDir,
	}
	if err := m.Runner.Run(ctx, cmd); err != nil {
		return "", err
	}

	return artifact, nil
}
