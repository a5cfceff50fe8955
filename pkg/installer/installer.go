// Package installer populates the isolated conda prefix inside the AppDir.
// Every step is fatal on failure: a half-installed environment is not
// considered safely resumable, so the run aborts on the first error.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/logger"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/runner"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/types"
)

// Installer drives the Miniconda installer and the package managers
type Installer struct {
	AppDir string
	Spec   types.EnvironmentSpec
	Runner runner.Runner
	Logger logger.Logger
}

// New creates an installer for the given AppDir and environment spec
func New(appDir string, spec types.EnvironmentSpec, run runner.Runner, log logger.Logger) *Installer {
	return &Installer{
		AppDir: appDir,
		Spec:   spec,
		Runner: run,
		Logger: log.WithStage("install"),
	}
}

// Prefix returns the isolated installation prefix. It is kept separate from
// the bundle's general usr/ tree so conda's libraries cannot shadow
// libraries supplied by other bundling steps.
func (i *Installer) Prefix() string {
	return filepath.Join(i.AppDir, "usr", "conda")
}

// Run installs Miniconda and the declared packages, then merges the
// prefix's executables into usr/bin
func (i *Installer) Run(ctx context.Context, installerPath string) error {
	prefix := i.Prefix()

	if _, err := os.Stat(prefix); err == nil {
		i.Logger.Warn("Installation directory already exists, state from previous runs may leak into the bundle",
			logger.WithField("prefix", prefix))
	}

	i.Logger.Info("Installing Miniconda", logger.WithField("prefix", prefix))
	if err := i.Runner.Run(ctx, runner.Command{
		Name: "sh",
		Args: []string{installerPath, "-b", "-f", "-p", prefix},
	}); err != nil {
		return err
	}

	// Redirect HOME to a scratch directory for all conda/pip invocations,
	// so host user configuration (~/.condarc, ~/.pip) is never read or
	// mutated by the install.
	scratchHome := filepath.Join(os.TempDir(), "conda-home-"+uuid.NewString())
	if err := os.MkdirAll(scratchHome, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch home: %w", err)
	}
	defer os.RemoveAll(scratchHome)

	env := []string{
		"HOME=" + scratchHome,
		"PATH=" + filepath.Join(prefix, "bin") + string(os.PathListSeparator) + os.Getenv("PATH"),
	}
	conda := filepath.Join(prefix, "bin", "conda")
	python := filepath.Join(prefix, "bin", "python")

	// Channel registration order determines dependency-resolution
	// precedence; the default channel always wins ties.
	if err := i.Runner.Run(ctx, runner.Command{
		Name: conda,
		Args: []string{"config", "--add", "channels", "defaults"},
		Env:  env,
	}); err != nil {
		return err
	}
	for _, channel := range i.Spec.Channels {
		if err := i.Runner.Run(ctx, runner.Command{
			Name: conda,
			Args: []string{"config", "--append", "channels", channel},
			Env:  env,
		}); err != nil {
			return err
		}
	}

	// The version pin installs before any other package so later package
	// resolution is constrained against it.
	if i.Spec.PythonVersion != "" {
		i.Logger.Info("Pinning python version", logger.WithField("version", i.Spec.PythonVersion))
		if err := i.Runner.Run(ctx, runner.Command{
			Name: conda,
			Args: []string{"install", "-y", "python=" + i.Spec.PythonVersion},
			Env:  env,
		}); err != nil {
			return err
		}
	}

	for _, pkg := range i.Spec.Packages {
		i.Logger.Info("Installing package", logger.WithField("package", pkg))
		if err := i.Runner.Run(ctx, runner.Command{
			Name: conda,
			Args: []string{"install", "-y", pkg},
			Env:  env,
		}); err != nil {
			return err
		}
	}

	if err := i.Runner.Run(ctx, runner.Command{
		Name: python,
		Args: []string{"-m", "pip", "install", "--upgrade", "pip"},
		Env:  env,
	}); err != nil {
		return err
	}

	if len(i.Spec.PipRequirements) > 0 {
		if err := i.installPipRequirements(ctx, python, env); err != nil {
			return err
		}
	}

	return i.mergeExecutables()
}

// installPipRequirements runs the batched pip install for all auxiliary
// requirement directives
func (i *Installer) installPipRequirements(ctx context.Context, python string, env []string) error {
	args := []string{"-m", "pip", "install"}
	if i.Spec.PipVerbose {
		args = append(args, "-v")
	}
	if i.Spec.PipPrefix != "" {
		args = append(args, "--prefix", i.Spec.PipPrefix)
	}
	for _, directive := range i.Spec.PipRequirements {
		args = append(args, directive.Args...)
	}

	i.Logger.Info("Installing pip requirements",
		logger.WithField("count", len(i.Spec.PipRequirements)))

	// The working directory is scoped to this single invocation; the
	// process cwd is never changed, so no restore step can be missed on
	// a failure path.
	return i.Runner.Run(ctx, runner.Command{
		Name: python,
		Args: args,
		Dir:  i.Spec.PipWorkdir,
		Env:  env,
	})
}
