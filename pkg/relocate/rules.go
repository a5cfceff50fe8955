package relocate

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// activateRule rewrites the shell activation script. The script embeds the
// build path inside single-quoted assignments, so the first pass splits the
// quote around a double-quoted variable expansion; a second, unconditional
// pass catches occurrences outside quotes.
type activateRule struct{}

func (r *activateRule) Name() string { return "activate" }

func (r *activateRule) Apply(e *Engine) error {
	script := filepath.Join(e.Prefix(), "bin", "activate")
	return e.rewriteFile(script, func(content string) string {
		// 'P/rest' -> ''"$APPDIR"'/rest' : the empty string closes the
		// opened quote, $APPDIR expands double-quoted, the rest stays
		// single-quoted.
		content = strings.ReplaceAll(content, "'"+e.buildPath, `''"$APPDIR"'`)
		return strings.ReplaceAll(content, e.buildPath, "${APPDIR}")
	})
}

// shellVariantsRule rewrites the csh and fish activation variants. Neither
// dialect needs the quote-splitting treatment, so a single pass suffices.
type shellVariantsRule struct{}

func (r *shellVariantsRule) Name() string { return "shell-variants" }

func (r *shellVariantsRule) Apply(e *Engine) error {
	for _, name := range []string{"activate.csh", "activate.fish"} {
		script := filepath.Join(e.Prefix(), "bin", name)
		err := e.rewriteFile(script, func(content string) string {
			return strings.ReplaceAll(content, e.buildPath, "$APPDIR")
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// binScanRule rewrites every regular file in the prefix's executable
// directories: shebang lines become portable env lookups, and embedded
// assignments of the build path become APPDIR references. The python-style
// assignment pattern must run before the generic one: the generic pattern
// also matches python text and would leave adjacent string literals whose
// implicit concatenation changes the value.
type binScanRule struct {
	buildPath string

	pyAssign *regexp.Regexp
	shSingle *regexp.Regexp
	shDouble *regexp.Regexp
}

func newBinScanRule(buildPath string) *binScanRule {
	quoted := regexp.QuoteMeta(buildPath)
	return &binScanRule{
		buildPath: buildPath,
		pyAssign: regexp.MustCompile(
			`(?m)^([ \t]*[A-Za-z_][A-Za-z0-9_]*) = (['"])` + quoted),
		shSingle: regexp.MustCompile(
			`(?m)^([ \t]*(?:export[ \t]+)?[A-Za-z_][A-Za-z0-9_]*[ \t]*=[ \t]*)'` + quoted),
		shDouble: regexp.MustCompile(
			`(?m)^([ \t]*(?:export[ \t]+)?[A-Za-z_][A-Za-z0-9_]*[ \t]*=[ \t]*)"` + quoted),
	}
}

func (r *binScanRule) Name() string { return "bin-scan" }

func (r *binScanRule) Apply(e *Engine) error {
	for _, dir := range []string{"bin", "condabin"} {
		entries, err := os.ReadDir(filepath.Join(e.Prefix(), dir))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}

		for _, entry := range entries {
			path := filepath.Join(e.Prefix(), dir, entry.Name())

			// Stat follows symlinks; the rewrite applies to the target
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}

			if err := e.rewriteFile(path, r.rewrite); err != nil {
				return err
			}
		}
	}
	return nil
}

// rewrite applies the three sub-transforms in their required order
func (r *binScanRule) rewrite(content string) string {
	if looksBinary(content) {
		return content
	}

	content = r.rewriteShebang(content)
	content = r.pyAssign.ReplaceAllString(content, `${1} = os.environ['APPDIR'] + ${2}`)
	content = r.shSingle.ReplaceAllString(content, `${1}"$$APPDIR"'`)
	content = r.shDouble.ReplaceAllString(content, `${1}"$$APPDIR`)
	return content
}

// rewriteShebang replaces an absolute interpreter path under the build path
// with a search-path lookup, which is what makes relocated executables work
// regardless of the final install location
func (r *binScanRule) rewriteShebang(content string) string {
	if !strings.HasPrefix(content, "#!") {
		return content
	}

	end := strings.IndexByte(content, '\n')
	if end < 0 {
		end = len(content)
	}
	line := content[:end]

	fields := strings.Fields(strings.TrimPrefix(line, "#!"))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], r.buildPath) {
		return content
	}

	interpreter := filepath.Base(fields[0])
	return "#!/usr/bin/env " + interpreter + content[end:]
}

// looksBinary reports whether the content appears to be binary data; such
// files are left untouched since a false negative is safer than corrupting
// non-text content
func looksBinary(content string) bool {
	window := content
	if len(window) > 1024 {
		window = window[:1024]
	}
	return bytes.IndexByte([]byte(window), 0) >= 0
}

// namedFilesRule rewrites the two pkg-config helper files. They are plain
// configuration files, not scripts, so a full-file substitution needs no
// quote-aware handling.
type namedFilesRule struct{}

func (r *namedFilesRule) Name() string { return "named-files" }

func (r *namedFilesRule) Apply(e *Engine) error {
	for _, name := range []string{"python3.pc", "python3-embed.pc"} {
		path := filepath.Join(e.Prefix(), "lib", "pkgconfig", name)
		err := e.rewriteFile(path, func(content string) string {
			return strings.ReplaceAll(content, e.buildPath, "${APPDIR}")
		})
		if err != nil {
			return err
		}
	}
	return nil
}
