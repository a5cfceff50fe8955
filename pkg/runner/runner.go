// Package runner executes external tools with captured diagnostics
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/logger"
)

// Command describes one external tool invocation
type Command struct {
	Name string
	Args []string

	// Dir is the working directory; empty means the current directory
	Dir string

	// Env entries are appended to the inherited environment
	Env []string
}

// String renders the command for log lines
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner abstracts external tool execution so pipeline stages can be
// tested without invoking real installers
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ToolError is returned when an external tool exits non-zero. It carries
// the tool's combined output so fatal failures surface the tool's own
// diagnostics alongside the pipeline's log line.
type ToolError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

// Error implements the error interface
func (e *ToolError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v\n%s", e.Tool, e.Err, e.Output)
}

// Unwrap returns the underlying process error
func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands through os/exec, streaming output to Stdout
// while keeping a copy for error reporting
type ExecRunner struct {
	Logger logger.Logger

	// Stdout receives the tool's combined output as it is produced;
	// defaults to os.Stdout
	Stdout io.Writer
}

// NewExecRunner creates a runner that streams tool output to stdout
func NewExecRunner(log logger.Logger) *ExecRunner {
	return &ExecRunner{Logger: log, Stdout: os.Stdout}
}

// Run executes the command synchronously and blocks until it exits
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	if r.Logger != nil {
		r.Logger.Debug("Executing", logger.WithField("command", cmd.String()))
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var captured bytes.Buffer
	out := io.Writer(&captured)
	if r.Stdout != nil {
		out = io.MultiWriter(r.Stdout, &captured)
	}
	c.Stdout = out
	c.Stderr = out

	if err := c.Run(); err != nil {
		return &ToolError{
			Tool:   cmd.Name,
			Args:   cmd.Args,
			Output: captured.String(),
			Err:    err,
		}
	}

	return nil
}
