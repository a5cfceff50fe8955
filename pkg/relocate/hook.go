package relocate

import (
	"os"
	"path/filepath"
)

// HookFilename is the startup fragment sourced by the bundle's entry point
const HookFilename = "linuxdeploy-plugin-conda-hook.sh"

// hookScript defines APPDIR (falling back to the directory containing the
// running entry point, so the bundle is self-locating) and prepends the
// bundle's merged bin directory to the search path so the portable shebangs
// resolve to bundled binaries first. Exactly these two exports, nothing else.
const hookScript = `# generated by linuxdeploy-plugin-conda
export APPDIR="${APPDIR:-$(dirname "$(readlink -f "$0")")}"
export PATH="$APPDIR"/usr/bin:"$PATH"
`

// hookRule emits the startup hook into the bundle's hooks directory
type hookRule struct{}

func (r *hookRule) Name() string { return "hook" }

func (r *hookRule) Apply(e *Engine) error {
	hookDir := filepath.Join(e.AppDir, "apprun_hooks")
	if err := os.MkdirAll(hookDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(hookDir, HookFilename), []byte(hookScript), 0o755)
}
