package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration validation.
// These enable reliable error checking with errors.Is()
var (
	// ErrMissingAppDir indicates the required AppDir argument was empty
	ErrMissingAppDir = errors.New("AppDir path is required")

	// ErrUnsupportedArchitecture indicates no installer exists for the
	// requested architecture
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")

	// ErrInvalidPythonVersion indicates the version pin could not be parsed
	ErrInvalidPythonVersion = errors.New("invalid python version pin")
)

// ConfigurationError wraps a sentinel with the offending input value
type ConfigurationError struct {
	Err   error
	Value string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Value)
}

// Unwrap returns the sentinel for errors.Is checks
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
