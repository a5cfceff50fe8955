// Package types defines the core domain types for the bundling pipeline
package types

import "strings"

// Architecture identifies the installer variant to fetch
type Architecture string

const (
	ArchX8664 Architecture = "x86_64"
	ArchI386  Architecture = "i386"
	ArchI686  Architecture = "i686"
)

// Supported reports whether an installer variant exists for the architecture
func (a Architecture) Supported() bool {
	switch a {
	case ArchX8664, ArchI386, ArchI686:
		return true
	}
	return false
}

// RequirementKind classifies a pip requirement directive
type RequirementKind string

const (
	// RequirementPackage is a plain package name, optionally with a version spec
	RequirementPackage RequirementKind = "package"
	// RequirementFile is a `-r <file>` requirements-file reference
	RequirementFile RequirementKind = "file"
	// RequirementVCS is a version-control source reference (git+..., hg+..., ...)
	RequirementVCS RequirementKind = "vcs"
)

// RequirementDirective is one entry of the secondary installer's batch
type RequirementDirective struct {
	Kind RequirementKind
	// Args are the raw tokens passed to pip, in order. A file directive
	// carries two tokens ("-r", "<file>"), the other kinds carry one.
	Args []string
}

// String returns the directive as it appears on the pip command line
func (d RequirementDirective) String() string {
	return strings.Join(d.Args, " ")
}

// ParseRequirements splits a whitespace-separated directive string into
// classified directives, preserving order. A trailing "-r" without a file
// operand is kept as a package token so pip reports it itself.
func ParseRequirements(raw string) []RequirementDirective {
	tokens := strings.Fields(raw)
	directives := make([]RequirementDirective, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == "-r" && i+1 < len(tokens):
			directives = append(directives, RequirementDirective{
				Kind: RequirementFile,
				Args: []string{tok, tokens[i+1]},
			})
			i++
		case isVCSReference(tok):
			directives = append(directives, RequirementDirective{
				Kind: RequirementVCS,
				Args: []string{tok},
			})
		default:
			directives = append(directives, RequirementDirective{
				Kind: RequirementPackage,
				Args: []string{tok},
			})
		}
	}

	return directives
}

// isVCSReference matches pip's VCS URL schemes
func isVCSReference(token string) bool {
	for _, prefix := range []string{"git+", "hg+", "svn+", "bzr+"} {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	return false
}

// EnvironmentSpec describes what gets installed into the conda prefix
type EnvironmentSpec struct {
	// Channels are appended after the default channel, in order.
	// Order determines dependency-resolution precedence.
	Channels []string

	// PythonVersion pins the runtime version; installed before any package
	PythonVersion string

	// Packages are installed individually, in declaration order
	Packages []string

	// PipRequirements are installed in one batched pip invocation
	PipRequirements []RequirementDirective

	// PipPrefix redirects pip's install location if non-empty
	PipPrefix string

	// PipWorkdir is the working directory during the pip batch install
	PipWorkdir string

	// PipVerbose requests verbose pip output
	PipVerbose bool
}
