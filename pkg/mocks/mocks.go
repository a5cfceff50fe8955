// Package mocks provides mock implementations of interfaces for testing.
// These follow the same hand-written test-double style as the rest of the
// codebase; regenerate with mockgen only if the interfaces grow.
package mocks

import (
	"context"
	"sync"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/runner"
)

// MockRunner records every command it is asked to run
type MockRunner struct {
	mu       sync.Mutex
	commands []runner.Command

	// RunFunc, if set, decides the result of each invocation
	RunFunc func(ctx context.Context, cmd runner.Command) error
}

// NewMockRunner creates a recording runner that succeeds for every command
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// Run records the command and delegates to RunFunc if set
func (m *MockRunner) Run(ctx context.Context, cmd runner.Command) error {
	m.mu.Lock()
	m.commands = append(m.commands, cmd)
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, cmd)
	}
	return nil
}

// Commands returns a copy of the recorded commands in invocation order
func (m *MockRunner) Commands() []runner.Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]runner.Command, len(m.commands))
	copy(out, m.commands)
	return out
}

// CommandLines returns the recorded commands rendered as strings
func (m *MockRunner) CommandLines() []string {
	cmds := m.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}
