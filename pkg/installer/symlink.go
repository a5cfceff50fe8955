package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/logger"
)

// mergeExecutables links every executable found in the conda prefix's bin
// directory into the bundle's merged usr/bin namespace. Links are relative
// so the bundle stays relocatable. A name that already exists in usr/bin is
// skipped with a warning; it may have been supplied by another bundling step.
func (i *Installer) mergeExecutables() error {
	condaBin := filepath.Join(i.Prefix(), "bin")
	usrBin := filepath.Join(i.AppDir, "usr", "bin")

	if err := os.MkdirAll(usrBin, 0o755); err != nil {
		return fmt.Errorf("failed to create usr/bin: %w", err)
	}

	entries, err := os.ReadDir(condaBin)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", condaBin, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		link := filepath.Join(usrBin, entry.Name())
		if _, err := os.Lstat(link); err == nil {
			i.Logger.Warn("Skipping existing entry in usr/bin",
				logger.WithField("name", entry.Name()))
			continue
		}

		target := filepath.Join("..", "conda", "bin", entry.Name())
		if err := os.Symlink(target, link); err != nil {
			return fmt.Errorf("failed to link %s: %w", entry.Name(), err)
		}
	}

	return nil
}
