package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/cache"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/cleanup"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/config"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/installer"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/logger"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/manifest"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/relocate"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/runner"
)

// runPipeline executes the four stages in order: acquisition, installation,
// relocation, cleanup. No stage starts before the previous stage's side
// effects are fully committed; the first fatal error aborts the run with no
// rollback ("perform a clean build before release").
func runPipeline(appDir string) error {
	cfg, err := config.FromEnv(appDir)
	if err != nil {
		printError(err.Error())
		return err
	}

	// Parse the skip-list before touching anything: a bad token must fail
	// the run before the bundle is mutated, even though cleanup runs last.
	skip, err := cleanup.ParseSkipList(cfg.SkipCleanup)
	if err != nil {
		printError(err.Error())
		return err
	}

	log := logger.CreateLogger(cfg.LogLevel)
	printInfo(fmt.Sprintf("Bundling conda environment into %s", appDir))

	if err := os.MkdirAll(appDir, 0o755); err != nil {
		log.Error("Failed to create AppDir", logger.WithField("error", err))
		return err
	}

	ctx := context.Background()
	run := runner.NewExecRunner(log)

	installerPath, err := cache.NewManager(cfg.DownloadDir, run, log).Fetch(ctx, cfg.Architecture)
	if err != nil {
		log.Error("Installer download failed", logger.WithField("error", err))
		return err
	}

	inst := installer.New(appDir, cfg.Spec, run, log)
	if err := inst.Run(ctx, installerPath); err != nil {
		log.Error("Environment installation failed", logger.WithField("error", err))
		return err
	}

	if err := manifest.FromSpec(cfg.Architecture, cfg.Spec).Write(inst.Prefix()); err != nil {
		log.Warn("Could not write bundle manifest", logger.WithField("error", err))
	}

	if cfg.SkipRelocation {
		log.Info("Skipping path adjustment (CONDA_SKIP_ADJUST_PATHS is set)")
	} else {
		engine, err := relocate.New(appDir, log)
		if err != nil {
			log.Error("Relocation failed", logger.WithField("error", err))
			return err
		}
		if err := engine.Run(); err != nil {
			log.Error("Relocation failed", logger.WithField("error", err))
			return err
		}
	}

	if err := cleanup.New(inst.Prefix(), skip, run, log).Run(ctx); err != nil {
		log.Error("Cleanup failed", logger.WithField("error", err))
		return err
	}

	log.Success("Bundle assembled", logger.WithField("appdir", appDir))
	return nil
}
