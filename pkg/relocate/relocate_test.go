package relocate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/logger"
	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/relocate"
)

func testLogger() logger.Logger {
	return logger.CreateLoggerWithOutput("error", os.Stderr)
}

// newBundle returns an AppDir, its absolute build path and the conda prefix
func newBundle(t *testing.T) (appDir, buildPath, prefix string) {
	t.Helper()
	appDir = t.TempDir()

	buildPath, err := filepath.Abs(appDir)
	if err != nil {
		t.Fatal(err)
	}
	prefix = filepath.Join(appDir, "usr", "conda")
	if err := os.MkdirAll(filepath.Join(prefix, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	return appDir, buildPath, prefix
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func runEngine(t *testing.T, appDir string) {
	t.Helper()
	engine, err := relocate.New(appDir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Run(); err != nil {
		t.Fatalf("relocation failed: %v", err)
	}
}

func TestActivate_QuotedRewrite(t *testing.T) {
	appDir, p, prefix := newBundle(t)
	activate := filepath.Join(prefix, "bin", "activate")
	write(t, activate,
		"VIRTUAL_ENV='"+p+"/usr/conda'\n"+
			"export CONDA_EXE="+p+"/usr/conda/bin/conda\n")

	runEngine(t, appDir)

	got := read(t, activate)
	if !strings.Contains(got, `VIRTUAL_ENV=''"$APPDIR"'/usr/conda'`) {
		t.Errorf("quoted assignment not quote-split:\n%s", got)
	}
	if !strings.Contains(got, "export CONDA_EXE=${APPDIR}/usr/conda/bin/conda") {
		t.Errorf("unquoted occurrence not rewritten:\n%s", got)
	}
	if strings.Contains(got, p) {
		t.Errorf("literal build path survived in activate:\n%s", got)
	}
}

func TestShellVariants_SinglePass(t *testing.T) {
	appDir, p, prefix := newBundle(t)
	csh := filepath.Join(prefix, "bin", "activate.csh")
	fish := filepath.Join(prefix, "bin", "activate.fish")
	write(t, csh, "setenv CONDA_PREFIX "+p+"/usr/conda\n")
	write(t, fish, "set -gx CONDA_PREFIX "+p+"/usr/conda\n")

	runEngine(t, appDir)

	if got := read(t, csh); !strings.Contains(got, "setenv CONDA_PREFIX $APPDIR/usr/conda") {
		t.Errorf("csh variant not rewritten:\n%s", got)
	}
	if got := read(t, fish); !strings.Contains(got, "set -gx CONDA_PREFIX $APPDIR/usr/conda") {
		t.Errorf("fish variant not rewritten:\n%s", got)
	}
}

func TestBinScan_Shebang(t *testing.T) {
	appDir, p, prefix := newBundle(t)
	pip := filepath.Join(prefix, "bin", "pip")
	write(t, pip, "#!"+p+"/usr/conda/bin/python3.11\nimport sys\n")

	runEngine(t, appDir)

	got := read(t, pip)
	if !strings.HasPrefix(got, "#!/usr/bin/env python3.11\n") {
		t.Errorf("shebang not made portable:\n%s", got)
	}
}

func TestBinScan_CondabinShebang(t *testing.T) {
	appDir, p, prefix := newBundle(t)
	script := filepath.Join(prefix, "condabin", "conda")
	write(t, script, "#!"+p+"/usr/conda/bin/python3\nprint('hi')\n")

	runEngine(t, appDir)

	if got := read(t, script); !strings.HasPrefix(got, "#!/usr/bin/env python3\n") {
		t.Errorf("condabin shebang not made portable:\n%s", got)
	}
}

func TestBinScan_PythonAssignmentBeforeGeneric(t *testing.T) {
	appDir, p, prefix := newBundle(t)
	script := filepath.Join(prefix, "bin", "conda")
	write(t, script,
		"#!"+p+"/usr/conda/bin/python3\n"+
			"import os\n"+
			"_conda_root = '"+p+"/usr/conda'\n")

	runEngine(t, appDir)

	got := read(t, script)
	// The python class must win: the generic shell rewrite would leave two
	// adjacent string literals whose implicit concatenation changes the value.
	if !strings.Contains(got, "_conda_root = os.environ['APPDIR'] + '/usr/conda'") {
		t.Errorf("python assignment not rewritten as concatenation:\n%s", got)
	}
	if strings.Contains(got, `"$APPDIR"'`) {
		t.Errorf("generic shell rewrite leaked into python text:\n%s", got)
	}
}

func TestBinScan_GenericAssignments(t *testing.T) {
	appDir, p, prefix := newBundle(t)
	script := filepath.Join(prefix, "bin", "conda.sh")
	write(t, script,
		"CONDA_ROOT='"+p+"/usr/conda'\n"+
			"export PYTHONHOME=\""+p+"/usr/conda\"\n")

	runEngine(t, appDir)

	got := read(t, script)
	if !strings.Contains(got, `CONDA_ROOT="$APPDIR"'/usr/conda'`) {
		t.Errorf("single-quoted assignment not rewritten:\n%s", got)
	}
	if !strings.Contains(got, `export PYTHONHOME="$APPDIR/usr/conda"`) {
		t.Errorf("double-quoted assignment not rewritten:\n%s", got)
	}
}

func TestNamedFiles_FullSubstitution(t *testing.T) {
	appDir, p, prefix := newBundle(t)
	pc := filepath.Join(prefix, "lib", "pkgconfig", "python3.pc")
	write(t, pc, "prefix="+p+"/usr/conda\nlibdir="+p+"/usr/conda/lib\n")

	runEngine(t, appDir)

	got := read(t, pc)
	if !strings.Contains(got, "prefix=${APPDIR}/usr/conda") ||
		!strings.Contains(got, "libdir=${APPDIR}/usr/conda/lib") {
		t.Errorf("pkg-config file not fully substituted:\n%s", got)
	}
	if strings.Contains(got, p) {
		t.Errorf("literal build path survived in pkg-config file:\n%s", got)
	}
}

func TestHook_Emission(t *testing.T) {
	appDir, p, _ := newBundle(t)

	runEngine(t, appDir)

	hook := read(t, filepath.Join(appDir, "apprun_hooks", relocate.HookFilename))
	if strings.Count(hook, "export ") != 2 {
		t.Errorf("hook must contain exactly two exported declarations:\n%s", hook)
	}
	if !strings.Contains(hook, `export APPDIR="${APPDIR:-`) {
		t.Errorf("hook must default APPDIR to the entry point directory:\n%s", hook)
	}
	if !strings.Contains(hook, `export PATH="$APPDIR"/usr/bin:"$PATH"`) {
		t.Errorf("hook must prepend the merged bin directory to PATH:\n%s", hook)
	}
	if strings.Contains(hook, p) {
		t.Errorf("hook must not contain the literal build path:\n%s", hook)
	}
}

func TestSafety_UnmatchedFilesUntouched(t *testing.T) {
	appDir, p, prefix := newBundle(t)

	plain := filepath.Join(prefix, "bin", "README")
	write(t, plain, "no paths here\n")

	binary := filepath.Join(prefix, "bin", "libmagic")
	binContent := "ELF\x00magic" + p + "\x00tail"
	write(t, binary, binContent)

	runEngine(t, appDir)

	if got := read(t, plain); got != "no paths here\n" {
		t.Errorf("unmatched text file modified: %q", got)
	}
	if got := read(t, binary); got != binContent {
		t.Error("binary content must be byte-identical after the engine runs")
	}
}

func TestCompleteness_NoLiteralPathRemains(t *testing.T) {
	appDir, p, prefix := newBundle(t)

	write(t, filepath.Join(prefix, "bin", "activate"), "VIRTUAL_ENV='"+p+"/usr/conda'\n")
	write(t, filepath.Join(prefix, "bin", "activate.csh"), "setenv CONDA_PREFIX "+p+"\n")
	write(t, filepath.Join(prefix, "bin", "pip3"), "#!"+p+"/usr/conda/bin/python3\n")
	write(t, filepath.Join(prefix, "lib", "pkgconfig", "python3-embed.pc"), "prefix="+p+"\n")

	runEngine(t, appDir)

	handled := []string{
		filepath.Join(prefix, "bin", "activate"),
		filepath.Join(prefix, "bin", "activate.csh"),
		filepath.Join(prefix, "bin", "pip3"),
		filepath.Join(prefix, "lib", "pkgconfig", "python3-embed.pc"),
		filepath.Join(appDir, "apprun_hooks", relocate.HookFilename),
	}
	for _, path := range handled {
		if strings.Contains(read(t, path), p) {
			t.Errorf("literal build path remains in %s", path)
		}
	}
}

func TestSymlinksAreFollowed(t *testing.T) {
	appDir, p, prefix := newBundle(t)

	target := filepath.Join(prefix, "bin", "pip3.11")
	write(t, target, "#!"+p+"/usr/conda/bin/python3.11\n")
	link := filepath.Join(prefix, "bin", "pip3")
	if err := os.Symlink("pip3.11", link); err != nil {
		t.Fatal(err)
	}

	runEngine(t, appDir)

	if got := read(t, target); !strings.HasPrefix(got, "#!/usr/bin/env python3.11") {
		t.Errorf("rewrite must apply to the link target:\n%s", got)
	}
	if fi, err := os.Lstat(link); err != nil || fi.Mode()&os.ModeSymlink == 0 {
		t.Error("the symlink itself must survive")
	}
}
