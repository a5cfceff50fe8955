package cli_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/cli"
)

// executeCommand runs a fresh root command with the given arguments and
// returns the captured output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := cli.NewRootCommand("1.2.3")

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestPluginAPIVersionQuery(t *testing.T) {
	out, err := executeCommand(t, "--plugin-api-version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "0" {
		t.Errorf("plugin API version = %q, want 0", out)
	}
}

func TestPluginTypeQuery(t *testing.T) {
	out, err := executeCommand(t, "--plugin-type")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "input" {
		t.Errorf("plugin type = %q, want input", out)
	}
}

func TestVersionQuery(t *testing.T) {
	out, err := executeCommand(t, "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "1.2.3") {
		t.Errorf("version output = %q", out)
	}
}

func TestMissingAppDir(t *testing.T) {
	_, err := executeCommand(t)
	if err == nil {
		t.Fatal("expected an error when no AppDir is given")
	}
	if !strings.Contains(err.Error(), "AppDir") {
		t.Errorf("error should name the missing argument: %v", err)
	}
}

func TestUnknownFlag(t *testing.T) {
	out, err := executeCommand(t, "--no-such-flag")
	if err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("usage text must accompany a flag error, got: %q", out)
	}
}
