// Package cleanup removes runtime-irrelevant bulk from the conda prefix.
// Which passes run is controlled by a semicolon-delimited skip-list; an
// unrecognized token is a configuration error so a typo never silently
// skips nothing.
package cleanup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/logger"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/runner"
)

// Category names one deletion pass
type Category string

const (
	// CategoryPkgs removes cached package archives
	CategoryPkgs Category = "pkgs"
	// CategoryPyc removes bytecode caches
	CategoryPyc Category = "pyc"
	// CategoryStrip strips debug symbols from shared objects
	CategoryStrip Category = "strip"
	// CategoryStatic removes static archives
	CategoryStatic Category = "static"
	// CategoryCMake removes build-system export directories
	CategoryCMake Category = "cmake"
	// CategoryDoc removes documentation trees
	CategoryDoc Category = "doc"
	// CategoryMan removes manual-page trees
	CategoryMan Category = "man"
	// CategoryPip removes leftover packaging-tool installations
	CategoryPip Category = "pip"
)

// Categories returns every category in pass-execution order
func Categories() []Category {
	return []Category{
		CategoryPkgs, CategoryPyc, CategoryStrip, CategoryStatic,
		CategoryCMake, CategoryDoc, CategoryMan, CategoryPip,
	}
}

// FlagSet maps a category to "skip this pass"
type FlagSet map[Category]bool

// legacy boolean-truthy tokens kept for backward compatibility; each is
// equivalent to skipping every category
var legacyAllTokens = map[string]bool{
	"1": true, "true": true, "y": true, "yes": true, "all": true,
}

// ParseSkipList parses the raw skip-list. Tokens are case-insensitive and
// order-independent; an unrecognized token is a fatal configuration error.
func ParseSkipList(raw string) (FlagSet, error) {
	flags := make(FlagSet)

	for _, token := range strings.Split(raw, ";") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}

		if legacyAllTokens[token] {
			for _, category := range Categories() {
				flags[category] = true
			}
			continue
		}

		category := Category(token)
		if !validCategory(category) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
		}
		flags[category] = true
	}

	return flags, nil
}

func validCategory(c Category) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Cleaner executes the non-skipped deletion passes against the conda prefix
type Cleaner struct {
	Prefix string
	Skip   FlagSet
	Runner runner.Runner
	Logger logger.Logger
}

// New creates a cleaner for the given prefix
func New(prefix string, skip FlagSet, run runner.Runner, log logger.Logger) *Cleaner {
	return &Cleaner{
		Prefix: prefix,
		Skip:   skip,
		Runner: run,
		Logger: log.WithStage("cleanup"),
	}
}

// Run executes all passes not marked as skipped, in fixed order. Each pass
// is best-effort per matched entry, but a hard error (e.g. a permission
// failure) aborts the run.
func (c *Cleaner) Run(ctx context.Context) error {
	passes := []struct {
		category Category
		fn       func(context.Context) error
	}{
		{CategoryPkgs, c.removePackageCache},
		{CategoryPyc, c.removeBytecode},
		{CategoryStrip, c.stripSharedObjects},
		{CategoryStatic, c.removeStaticArchives},
		{CategoryCMake, c.removeCMakeExports},
		{CategoryDoc, c.removeDocs},
		{CategoryMan, c.removeManPages},
		{CategoryPip, c.removePackagingTools},
	}

	for _, pass := range passes {
		if c.Skip[pass.category] {
			c.Logger.Debug("Skipping cleanup pass", logger.WithField("pass", pass.category))
			continue
		}
		c.Logger.Info("Running cleanup pass", logger.WithField("pass", pass.category))
		if err := pass.fn(ctx); err != nil {
			return fmt.Errorf("cleanup pass %s: %w", pass.category, err)
		}
	}

	return nil
}

func (c *Cleaner) removePackageCache(context.Context) error {
	return os.RemoveAll(filepath.Join(c.Prefix, "pkgs"))
}

func (c *Cleaner) removeBytecode(context.Context) error {
	return filepath.WalkDir(c.Prefix, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "__pycache__" {
			if err := os.RemoveAll(path); err != nil {
				return err
			}
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".pyc") {
			return os.Remove(path)
		}
		return nil
	})
}

// stripSharedObjects strips debug symbols in place. A failing strip on an
// individual file is logged and skipped (some shared objects reject
// stripping); a filesystem error is fatal.
func (c *Cleaner) stripSharedObjects(ctx context.Context) error {
	libDir := filepath.Join(c.Prefix, "lib")
	if _, err := os.Stat(libDir); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(libDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.Contains(d.Name(), ".so") {
			return nil
		}

		cmd := runner.Command{Name: "strip", Args: []string{path}}
		if err := c.Runner.Run(ctx, cmd); err != nil {
			c.Logger.Warn("strip failed, keeping symbols",
				logger.WithField("file", d.Name()))
		}
		return nil
	})
}

func (c *Cleaner) removeStaticArchives(context.Context) error {
	libDir := filepath.Join(c.Prefix, "lib")
	if _, err := os.Stat(libDir); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(libDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".a") {
			return os.Remove(path)
		}
		return nil
	})
}

func (c *Cleaner) removeCMakeExports(context.Context) error {
	if err := os.RemoveAll(filepath.Join(c.Prefix, "lib", "cmake")); err != nil {
		return err
	}

	matches, err := filepath.Glob(filepath.Join(c.Prefix, "share", "cmake*"))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.RemoveAll(match); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cleaner) removeDocs(context.Context) error {
	return os.RemoveAll(filepath.Join(c.Prefix, "share", "doc"))
}

func (c *Cleaner) removeManPages(context.Context) error {
	return os.RemoveAll(filepath.Join(c.Prefix, "share", "man"))
}

// removePackagingTools deletes pip/setuptools/wheel installations from the
// runtime's site-packages; the bundle only runs code, it never installs more
func (c *Cleaner) removePackagingTools(context.Context) error {
	sitePackages, err := filepath.Glob(filepath.Join(c.Prefix, "lib", "python*", "site-packages"))
	if err != nil {
		return err
	}

	for _, sp := range sitePackages {
		for _, name := range []string{"pip", "setuptools", "wheel", "pkg_resources", "_distutils_hack"} {
			if err := os.RemoveAll(filepath.Join(sp, name)); err != nil {
				return err
			}
		}

		for _, pattern := range []string{"pip-*.dist-info", "setuptools-*.dist-info", "wheel-*.dist-info", "setuptools-*.egg-info"} {
			matches, err := filepath.Glob(filepath.Join(sp, pattern))
			if err != nil {
				return err
			}
			for _, match := range matches {
				if err := os.RemoveAll(match); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
