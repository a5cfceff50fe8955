// Package relocate rewrites build-time absolute paths baked into installed
// files so the bundle runs from any filesystem location. Every occurrence of
// the AppDir's build path becomes an indirection through the APPDIR
// environment variable, and a startup hook defines that variable at run time.
//
// The rule classes are applied in a fixed order: narrower rules must fire
// before broader rules see the same text, otherwise a later pass would
// double-substitute or break quoting already handled by an earlier one.
package relocate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/logger"
)

// Rule is one relocation transform class
type Rule interface {
	// Name identifies the rule in logs
	Name() string
	// Apply runs the transform against the engine's bundle
	Apply(e *Engine) error
}

// Engine applies the ordered rule classes to a bundle
type Engine struct {
	// AppDir is the bundle root; its absolute path is the string being
	// replaced everywhere
	AppDir string
	Logger logger.Logger

	buildPath string
	rules     []Rule
}

// New creates an engine for the given AppDir. The build path defaults to
// the AppDir's absolute path.
func New(appDir string, log logger.Logger) (*Engine, error) {
	buildPath, err := filepath.Abs(appDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve AppDir path: %w", err)
	}

	e := &Engine{
		AppDir:    appDir,
		Logger:    log.WithStage("relocate"),
		buildPath: buildPath,
	}
	e.rules = []Rule{
		&activateRule{},
		&shellVariantsRule{},
		newBinScanRule(buildPath),
		&namedFilesRule{},
		&hookRule{},
	}
	return e, nil
}

// Prefix returns the conda installation prefix inside the bundle
func (e *Engine) Prefix() string {
	return filepath.Join(e.AppDir, "usr", "conda")
}

// Run applies every rule class in order
func (e *Engine) Run() error {
	for _, rule := range e.rules {
		e.Logger.Debug("Applying rule class", logger.WithField("rule", rule.Name()))
		if err := rule.Apply(e); err != nil {
			return fmt.Errorf("relocation rule %s: %w", rule.Name(), err)
		}
	}
	e.Logger.Success("Bundle paths rewritten for relocation")
	return nil
}

// rewriteFile applies fn to the file's content and writes the result back
// if it changed, preserving the file mode. Symlinks are followed, so the
// rewrite applies to the link target. A missing file is not an error: rules
// only handle files that exist.
func (e *Engine) rewriteFile(path string, fn func(string) string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	rewritten := fn(string(data))
	if rewritten == string(data) {
		return nil
	}

	return os.WriteFile(path, []byte(rewritten), info.Mode().Perm())
}
